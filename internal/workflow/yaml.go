package workflow

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FormatVersion is the planner's YAML schema version.
const FormatVersion = "5.0"

type yamlWorkflow struct {
	Pegasus         string           `yaml:"pegasus"`
	Name            string           `yaml:"name"`
	Jobs            []yamlJob        `yaml:"jobs"`
	JobDependencies []yamlDependency `yaml:"jobDependencies,omitempty"`
}

type yamlJob struct {
	Type      string    `yaml:"type"`
	Name      string    `yaml:"name"`
	ID        string    `yaml:"id"`
	Arguments []string  `yaml:"arguments"`
	Uses      []yamlUse `yaml:"uses"`
}

type yamlUse struct {
	LFN             string `yaml:"lfn"`
	Type            string `yaml:"type"`
	StageOut        *bool  `yaml:"stageOut,omitempty"`
	RegisterReplica *bool  `yaml:"registerReplica,omitempty"`
}

type yamlDependency struct {
	ID       string   `yaml:"id"`
	Children []string `yaml:"children"`
}

// WriteYAML serializes the workflow in the planner's YAML format, including
// the dependencies inferred from file names. The output depends only on the
// jobs and their order.
func (w *Workflow) WriteYAML(out io.Writer) error {
	doc := yamlWorkflow{
		Pegasus: FormatVersion,
		Name:    w.name,
		Jobs:    make([]yamlJob, 0, len(w.jobs)),
	}
	for _, j := range w.jobs {
		yj := yamlJob{
			Type:      "job",
			Name:      j.transformation,
			ID:        j.id,
			Arguments: j.Args(),
			Uses:      make([]yamlUse, 0, len(j.uses)),
		}
		for _, u := range j.uses {
			yu := yamlUse{LFN: u.File.Name, Type: string(u.Link)}
			if u.Link == LinkOutput {
				stageOut, register := u.StageOut, u.RegisterReplica
				yu.StageOut = &stageOut
				yu.RegisterReplica = &register
			}
			yj.Uses = append(yj.Uses, yu)
		}
		doc.Jobs = append(doc.Jobs, yj)
	}

	children := w.Children()
	for _, j := range w.jobs {
		if c, ok := children[j.id]; ok {
			doc.JobDependencies = append(doc.JobDependencies, yamlDependency{ID: j.id, Children: c})
		}
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode workflow: %w", err)
	}
	return enc.Close()
}

// WriteYAMLFile writes the workflow to path.
func (w *Workflow) WriteYAMLFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workflow file %s: %w", path, err)
	}
	if err := w.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadYAML parses a workflow written by WriteYAML. Job identifiers are
// taken from the document; dependencies are recomputed from file names.
func ReadYAML(in io.Reader) (*Workflow, error) {
	var doc yamlWorkflow
	if err := yaml.NewDecoder(in).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode workflow: %w", err)
	}
	if doc.Pegasus != FormatVersion {
		return nil, fmt.Errorf("unsupported workflow format version %q", doc.Pegasus)
	}

	w := New(doc.Name)
	for _, yj := range doc.Jobs {
		b := NewJobBuilder(yj.Name).AddArgs(yj.Arguments...)
		for _, u := range yj.Uses {
			f := NewFile(u.LFN)
			switch LinkType(u.Type) {
			case LinkInput:
				b.AddInputs(f)
			case LinkOutput:
				b.add(Use{
					File:            f,
					Link:            LinkOutput,
					StageOut:        u.StageOut != nil && *u.StageOut,
					RegisterReplica: u.RegisterReplica != nil && *u.RegisterReplica,
				})
			default:
				return nil, fmt.Errorf("job %s: unknown link type %q for %s", yj.ID, u.Type, u.LFN)
			}
		}
		j := b.Build()
		j.id = yj.ID
		w.jobs = append(w.jobs, j)
	}
	return w, nil
}
