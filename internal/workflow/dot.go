package workflow

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DotOption tunes graph rendering.
type DotOption func(*dotStyle)

type dotStyle struct {
	files bool
}

// WithFiles draws files as nodes between their producer and consumers.
func WithFiles() DotOption {
	return func(s *dotStyle) {
		s.files = true
	}
}

// WriteDot renders the workflow as a Graphviz digraph.
func (w *Workflow) WriteDot(out io.Writer, opts ...DotOption) error {
	var style dotStyle
	for _, o := range opts {
		o(&style)
	}

	bw := bufio.NewWriter(out)
	fmt.Fprintf(bw, "digraph %q {\n", w.name)
	bw.WriteString("\trankdir=TB;\n")
	bw.WriteString("\tnode [shape=ellipse, style=filled, fillcolor=\"#dbe9f6\"];\n")

	for _, j := range w.jobs {
		fmt.Fprintf(bw, "\t%q[label=\"%s\"];\n", j.id, escapeLabel(j.transformation+`\n`+j.id))
	}

	if style.files {
		for _, f := range w.Files() {
			fmt.Fprintf(bw, "\t%q[shape=rect, fillcolor=\"#ffffff\", label=\"%s\"];\n", "file:"+f.Name, escapeLabel(f.Name))
		}
		for _, j := range w.jobs {
			for _, u := range j.uses {
				if u.Link == LinkInput {
					fmt.Fprintf(bw, "\t%q -> %q;\n", "file:"+u.File.Name, j.id)
				} else {
					fmt.Fprintf(bw, "\t%q -> %q;\n", j.id, "file:"+u.File.Name)
				}
			}
		}
	} else {
		for _, e := range w.Edges() {
			fmt.Fprintf(bw, "\t%q -> %q;\n", e.Parent, e.Child)
		}
	}

	bw.WriteString("}\n")
	return bw.Flush()
}

// escapeLabel escapes double quotes while keeping Graphviz `\n` escapes.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
