package workflow

import "strings"

// File is a logical file name standing in for a physical file.
type File struct {
	Name string
}

// NewFile returns the logical file for name.
func NewFile(name string) File {
	return File{Name: name}
}

// String returns the logical file name.
func (f File) String() string {
	return f.Name
}

// LinkType tells whether a job reads or writes a file.
type LinkType string

const (
	LinkInput  LinkType = "input"
	LinkOutput LinkType = "output"
)

// Use binds a file to a job.
type Use struct {
	File            File
	Link            LinkType
	StageOut        bool
	RegisterReplica bool
}

// Job is one node of the workflow graph. It is immutable once built; use a
// JobBuilder to assemble it.
type Job struct {
	id             string
	transformation string
	args           []string
	uses           []Use
}

// ID returns the identifier assigned when the job was added to a workflow.
// It is empty for a job that has not been added yet.
func (j Job) ID() string {
	return j.id
}

// Transformation returns the logical executable name.
func (j Job) Transformation() string {
	return j.transformation
}

// Args returns a copy of the argument list.
func (j Job) Args() []string {
	out := make([]string, len(j.args))
	copy(out, j.args)
	return out
}

// CommandLine renders the job as the shell command it stands for.
func (j Job) CommandLine() string {
	return strings.TrimSpace(j.transformation + " " + strings.Join(j.args, " "))
}

// Uses returns a copy of every file binding in declaration order.
func (j Job) Uses() []Use {
	out := make([]Use, len(j.uses))
	copy(out, j.uses)
	return out
}

// Inputs returns the input files in declaration order.
func (j Job) Inputs() []File {
	return j.filter(LinkInput)
}

// Outputs returns the output files in declaration order.
func (j Job) Outputs() []File {
	return j.filter(LinkOutput)
}

func (j Job) filter(link LinkType) []File {
	var out []File
	for _, u := range j.uses {
		if u.Link == link {
			out = append(out, u.File)
		}
	}
	return out
}

// JobBuilder accumulates arguments and file bindings for a job. Files are
// kept as sets: adding a file twice with the same link has no effect.
type JobBuilder struct {
	transformation string
	args           []string
	uses           []Use
	seen           map[fileLink]struct{}
}

type fileLink struct {
	file File
	link LinkType
}

// NewJobBuilder starts a job for the given transformation.
func NewJobBuilder(transformation string) *JobBuilder {
	return &JobBuilder{
		transformation: transformation,
		seen:           make(map[fileLink]struct{}),
	}
}

// AddArgs appends positional arguments.
func (b *JobBuilder) AddArgs(args ...string) *JobBuilder {
	b.args = append(b.args, args...)
	return b
}

// AddInputs declares files the job reads.
func (b *JobBuilder) AddInputs(files ...File) *JobBuilder {
	for _, f := range files {
		b.add(Use{File: f, Link: LinkInput})
	}
	return b
}

// AddOutputs declares intermediate files the job writes.
func (b *JobBuilder) AddOutputs(files ...File) *JobBuilder {
	for _, f := range files {
		b.add(Use{File: f, Link: LinkOutput})
	}
	return b
}

// AddStagedOutputs declares output files that are staged to the output
// site and registered in the replica catalog.
func (b *JobBuilder) AddStagedOutputs(files ...File) *JobBuilder {
	for _, f := range files {
		b.add(Use{File: f, Link: LinkOutput, StageOut: true, RegisterReplica: true})
	}
	return b
}

func (b *JobBuilder) add(u Use) {
	key := fileLink{file: u.File, link: u.Link}
	if _, ok := b.seen[key]; ok {
		return
	}
	b.seen[key] = struct{}{}
	b.uses = append(b.uses, u)
}

// InputCount returns the number of distinct input files added so far.
func (b *JobBuilder) InputCount() int {
	n := 0
	for _, u := range b.uses {
		if u.Link == LinkInput {
			n++
		}
	}
	return n
}

// Build returns an immutable job. The builder may keep being used; later
// additions do not affect jobs already built.
func (b *JobBuilder) Build() Job {
	j := Job{
		transformation: b.transformation,
		args:           make([]string, len(b.args)),
		uses:           make([]Use, len(b.uses)),
	}
	copy(j.args, b.args)
	copy(j.uses, b.uses)
	return j
}
