package workflow

import "fmt"

// Workflow is the ordered collection of jobs submitted to the planner.
type Workflow struct {
	name string
	jobs []Job
}

// New creates an empty workflow.
func New(name string) *Workflow {
	return &Workflow{name: name}
}

// Name returns the workflow name.
func (w *Workflow) Name() string {
	return w.name
}

// Add appends jobs in order, assigning each a sequential identifier
// (ID0000001, ID0000002, ...). It returns the assigned identifiers.
func (w *Workflow) Add(jobs ...Job) []string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		j.id = fmt.Sprintf("ID%07d", len(w.jobs)+1)
		w.jobs = append(w.jobs, j)
		ids = append(ids, j.id)
	}
	return ids
}

// Jobs returns the jobs in insertion order.
func (w *Workflow) Jobs() []Job {
	out := make([]Job, len(w.jobs))
	copy(out, w.jobs)
	return out
}

// Len returns the number of jobs.
func (w *Workflow) Len() int {
	return len(w.jobs)
}

// JobsFor returns every job running the named transformation, in order.
func (w *Workflow) JobsFor(transformation string) []Job {
	var out []Job
	for _, j := range w.jobs {
		if j.transformation == transformation {
			out = append(out, j)
		}
	}
	return out
}

// Files returns every file referenced by any job, in first-reference order.
func (w *Workflow) Files() []File {
	seen := make(map[File]struct{})
	var out []File
	for _, j := range w.jobs {
		for _, u := range j.uses {
			if _, ok := seen[u.File]; ok {
				continue
			}
			seen[u.File] = struct{}{}
			out = append(out, u.File)
		}
	}
	return out
}
