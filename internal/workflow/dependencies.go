package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Edge says that Child reads a file written by Parent.
type Edge struct {
	Parent string
	Child  string
	Files  []File
}

// ReplicaLookup reports whether a logical file has a registered physical
// location. The replica catalog implements it.
type ReplicaLookup interface {
	Has(name string) bool
}

// ErrInvalidWorkflow wraps every problem found by Validate.
var ErrInvalidWorkflow = errors.New("invalid workflow")

// producers maps every output file to the job writing it. A file written by
// more than one job is returned in dup.
func (w *Workflow) producers() (map[File]string, map[File][]string) {
	prod := make(map[File]string)
	dup := make(map[File][]string)
	for _, j := range w.jobs {
		for _, out := range j.Outputs() {
			if first, ok := prod[out]; ok {
				if len(dup[out]) == 0 {
					dup[out] = []string{first}
				}
				dup[out] = append(dup[out], j.id)
				continue
			}
			prod[out] = j.id
		}
	}
	return prod, dup
}

// Edges infers parent/child relations from shared file names. Edges are
// ordered by parent then child insertion order, so the result is stable.
func (w *Workflow) Edges() []Edge {
	prod, _ := w.producers()
	order := make(map[string]int, len(w.jobs))
	for i, j := range w.jobs {
		order[j.id] = i
	}

	type pair struct{ parent, child string }
	byPair := make(map[pair]*Edge)
	var edges []*Edge
	for _, j := range w.jobs {
		for _, in := range j.Inputs() {
			parent, ok := prod[in]
			if !ok || parent == j.id {
				continue
			}
			key := pair{parent, j.id}
			e, ok := byPair[key]
			if !ok {
				e = &Edge{Parent: parent, Child: j.id}
				byPair[key] = e
				edges = append(edges, e)
			}
			e.Files = append(e.Files, in)
		}
	}

	sort.SliceStable(edges, func(a, b int) bool {
		pa, pb := order[edges[a].Parent], order[edges[b].Parent]
		if pa != pb {
			return pa < pb
		}
		return order[edges[a].Child] < order[edges[b].Child]
	})

	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = *e
	}
	return out
}

// Children returns, for each parent id, its child ids in order.
func (w *Workflow) Children() map[string][]string {
	children := make(map[string][]string)
	for _, e := range w.Edges() {
		children[e.Parent] = append(children[e.Parent], e.Child)
	}
	return children
}

// Validate checks that every input is produced by exactly one job or is
// registered in the replica catalog, and that the inferred graph is
// acyclic. A nil lookup treats every unproduced input as missing.
func (w *Workflow) Validate(rc ReplicaLookup) error {
	prod, dup := w.producers()

	var problems []string
	if len(dup) > 0 {
		files := make([]string, 0, len(dup))
		for f := range dup {
			files = append(files, f.Name)
		}
		sort.Strings(files)
		for _, f := range files {
			problems = append(problems, fmt.Sprintf("file %q is written by %s", f, strings.Join(dup[NewFile(f)], ", ")))
		}
	}

	missing := make(map[string]struct{})
	for _, j := range w.jobs {
		for _, in := range j.Inputs() {
			if _, ok := prod[in]; ok {
				continue
			}
			if rc != nil && rc.Has(in.Name) {
				continue
			}
			missing[in.Name] = struct{}{}
		}
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for n := range missing {
			names = append(names, n)
		}
		sort.Strings(names)
		problems = append(problems, fmt.Sprintf("inputs with no producer and no replica: %s", strings.Join(names, ", ")))
	}

	if err := w.detectCycles(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidWorkflow, strings.Join(problems, "; "))
	}
	return nil
}

// detectCycles runs a depth-first search over the inferred edges, keeping
// nodes on the current path in a temporary set.
func (w *Workflow) detectCycles() error {
	children := w.Children()
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("cycle detected involving job '%s'", id)
		}
		temporary[id] = true
		for _, c := range children[id] {
			if err := visit(c); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, j := range w.jobs {
		if err := visit(j.id); err != nil {
			return err
		}
	}
	return nil
}
