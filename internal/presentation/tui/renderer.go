package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/arbor/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, nil }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// ExplanationMarkdown describes a decision as markdown: one section per
// output with the prediction, then the rules or agents behind it.
func ExplanationMarkdown(d *domain.Decision, cfg domain.Configuration) string {
	if d == nil {
		return ""
	}
	outputs := cfg.Output
	if len(outputs) == 0 {
		for name := range d.Output {
			outputs = append(outputs, name)
		}
		sort.Strings(outputs)
	}

	var sb strings.Builder
	for _, name := range outputs {
		out, ok := d.Output[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "## %s = `%v`\n\n", name, out.PredictedValue)

		sb.WriteString("| | |\n|---|---|\n")
		if out.Confidence != nil {
			fmt.Fprintf(&sb, "| confidence | %.2f |\n", *out.Confidence)
		}
		if out.StandardDeviation != nil {
			fmt.Fprintf(&sb, "| standard deviation | %g |\n", *out.StandardDeviation)
		}
		if out.NbSamples != nil {
			fmt.Fprintf(&sb, "| samples | %d |\n", *out.NbSamples)
		}
		sb.WriteString("\n")

		for _, r := range domain.ReduceRules(out.DecisionRules) {
			fmt.Fprintf(&sb, "- %s\n", domain.FormatRule(r, cfg.Context[r.Property].Type))
		}
		for _, a := range out.AgentRules {
			fmt.Fprintf(&sb, "- **%s**: %s\n", a.AgentID, domain.FormatRules(domain.ReduceRules(a.DecisionRules), cfg))
		}
		sb.WriteString("\n")
	}

	for _, a := range d.Agents {
		if a.Status == domain.AgentFailed {
			fmt.Fprintf(&sb, "> agent %s failed: %s\n", a.AgentID, a.Error)
		}
	}
	return sb.String()
}
