package loam

// TreeDocument is the shape of a tree file in a Loam repository. JSON and
// YAML files hold it at the top level; Markdown files hold it in their front
// matter and keep the body as free-form notes.
type TreeDocument struct {
	// ID overrides the file name as the tree ID.
	ID            string         `json:"id,omitempty" mapstructure:"id"`
	Version       any            `json:"_version,omitempty" mapstructure:"_version"`
	Configuration map[string]any `json:"configuration" mapstructure:"configuration"`
	Trees         map[string]any `json:"trees,omitempty" mapstructure:"trees"`
	Root          map[string]any `json:"root,omitempty" mapstructure:"root"`
}

// IsTree reports whether the document carries a tree at all. Other files in
// the repository (READMEs, notes) are skipped by ListTrees.
func (d TreeDocument) IsTree() bool {
	return d.Configuration != nil && (d.Trees != nil || d.Root != nil)
}
