package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// TextHandler writes one human-readable line per result.
type TextHandler struct {
	Writer        io.Writer
	Renderer      ContentRenderer
	Configuration domain.Configuration
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text output. cfg names the
// property types used to phrase decision rules.
func NewTextHandler(w io.Writer, cfg domain.Configuration, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w, Configuration: cfg}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle prints r.
func (h *TextHandler) Handle(ctx context.Context, r Result) error {
	text := Explain(r, h.Configuration)
	if h.Renderer != nil {
		if rendered, err := h.Renderer(text); err == nil {
			text = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(text))
	return err
}

// Explain renders a result as text, one output per line, prefixed with the
// input line number when there is one:
//
//	#3 color = orange (confidence 0.90) because presence is home and tod is between 20:00 and 07:00
func Explain(r Result, cfg domain.Configuration) string {
	var prefix string
	if r.Line > 0 {
		prefix = "#" + strconv.Itoa(r.Line) + " "
	}
	if r.Err != nil {
		return fmt.Sprintf("%serror: %v", prefix, r.Err)
	}
	if r.Decision == nil {
		return prefix + "no decision"
	}

	outputs := make([]string, 0, len(r.Decision.Output))
	for name := range r.Decision.Output {
		outputs = append(outputs, name)
	}
	if len(cfg.Output) > 0 {
		outputs = cfg.Output
	} else {
		sort.Strings(outputs)
	}

	var lines []string
	for _, name := range outputs {
		out, ok := r.Decision.Output[name]
		if !ok {
			continue
		}
		lines = append(lines, prefix+explainOutput(name, out, cfg))
	}
	for _, a := range r.Decision.Agents {
		if a.Status == domain.AgentFailed {
			lines = append(lines, fmt.Sprintf("%sagent %s failed: %s", prefix, a.AgentID, a.Error))
		}
	}
	return strings.Join(lines, "\n")
}

func explainOutput(name string, out domain.OutputDecision, cfg domain.Configuration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = %v", name, out.PredictedValue)
	if out.Confidence != nil {
		fmt.Fprintf(&b, " (confidence %.2f)", *out.Confidence)
	}
	if out.StandardDeviation != nil {
		fmt.Fprintf(&b, " ± %s", strconv.FormatFloat(*out.StandardDeviation, 'g', 4, 64))
	}

	switch {
	case len(out.DecisionRules) > 0:
		b.WriteString(" because ")
		b.WriteString(domain.FormatRules(domain.ReduceRules(out.DecisionRules), cfg))
	case len(out.AgentRules) > 0:
		ids := make([]string, len(out.AgentRules))
		for i, a := range out.AgentRules {
			ids[i] = a.AgentID
		}
		fmt.Fprintf(&b, " from %s", strings.Join(ids, ", "))
	}
	return b.String()
}
