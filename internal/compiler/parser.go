package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
)

// DefaultVersion is assumed for documents that carry no _version.
const DefaultVersion = "1"

// Parser is responsible for converting raw tree documents into a domain.Tree.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

type envelope struct {
	Version       json.RawMessage            `json:"_version"`
	Configuration json.RawMessage            `json:"configuration"`
	Trees         map[string]json.RawMessage `json:"trees"`
	Root          json.RawMessage            `json:"root"`
}

// Parse decodes a JSON tree document in either the {_version, configuration,
// trees} form or the {configuration, root} form. Every failure is reported as
// a *domain.MalformedTreeError locating the offending node.
func (p *Parser) Parse(data []byte) (*domain.Tree, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &domain.MalformedTreeError{Reason: "document is not a JSON object", Err: err}
	}

	version, err := parseVersion(env.Version)
	if err != nil {
		return nil, err
	}

	if len(env.Configuration) == 0 || string(env.Configuration) == "null" {
		return nil, &domain.MalformedTreeError{Path: "configuration", Reason: "required"}
	}
	var cfg domain.Configuration
	if err := json.Unmarshal(env.Configuration, &cfg); err != nil {
		return nil, &domain.MalformedTreeError{Path: "configuration", Reason: "cannot decode", Err: err}
	}
	if len(cfg.Output) == 0 {
		return nil, &domain.MalformedTreeError{Path: "configuration.output", Reason: "at least one output is required"}
	}

	types, err := schema.FromConfiguration(cfg)
	if err != nil {
		return nil, &domain.MalformedTreeError{Path: "configuration.context", Reason: "invalid property type", Err: err}
	}

	b := &builder{cfg: cfg, types: types}
	tree := &domain.Tree{
		Version:       version,
		Configuration: cfg,
		Roots:         make(map[string]domain.Node, len(cfg.Output)),
	}

	switch {
	case len(env.Trees) > 0:
		for _, output := range cfg.Output {
			raw, ok := env.Trees[output]
			if !ok {
				return nil, &domain.MalformedTreeError{Path: "trees", Reason: fmt.Sprintf("no tree for output %q", output)}
			}
			root, err := b.root(raw, "trees."+output, []string{output})
			if err != nil {
				return nil, err
			}
			tree.Roots[output] = root
		}
	case len(env.Root) > 0 && string(env.Root) != "null":
		root, err := b.root(env.Root, "root", cfg.Output)
		if err != nil {
			return nil, err
		}
		for _, output := range cfg.Output {
			tree.Roots[output] = root
		}
	default:
		return nil, &domain.MalformedTreeError{Reason: "document has neither trees nor root"}
	}

	return tree, nil
}

func parseVersion(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return DefaultVersion, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", &domain.MalformedTreeError{Path: "_version", Reason: "must be a string or a number"}
}

type builder struct {
	cfg   domain.Configuration
	types schema.Schema
	// outputValues indexes array distributions of the current v2 root.
	outputValues []any
}

func (b *builder) root(raw json.RawMessage, path string, outputs []string) (domain.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic map[string]any
	if err := dec.Decode(&generic); err != nil {
		return nil, &domain.MalformedTreeError{Path: path, Reason: "node is not an object", Err: err}
	}
	doc, err := decodeNode(generic, path)
	if err != nil {
		return nil, err
	}
	b.outputValues = doc.OutputValues
	return b.node(doc, path, outputs)
}

func decodeNode(generic map[string]any, path string) (dto.NodeDocument, error) {
	var doc dto.NodeDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &doc,
		TagName: "mapstructure",
	})
	if err != nil {
		return doc, &domain.MalformedTreeError{Path: path, Reason: "decoder setup", Err: err}
	}
	if err := decoder.Decode(generic); err != nil {
		return doc, &domain.MalformedTreeError{Path: path, Reason: "cannot decode node", Err: err}
	}
	return doc, nil
}

func (b *builder) node(doc dto.NodeDocument, path string, outputs []string) (domain.Node, error) {
	if doc.IsLeaf() {
		return b.leaf(doc, path, outputs)
	}

	dn := &domain.DecisionNode{Branches: make([]domain.Branch, 0, len(doc.Children))}
	for i, generic := range doc.Children {
		childPath := fmt.Sprintf("%s.children[%d]", path, i)
		child, err := decodeNode(generic, childPath)
		if err != nil {
			return nil, err
		}
		if child.DecisionRule == nil {
			return nil, &domain.MalformedTreeError{Path: childPath, Reason: "decision_rule is required"}
		}
		rule := child.DecisionRule
		if dn.Property == "" {
			dn.Property = rule.Property
		} else if rule.Property != dn.Property {
			return nil, &domain.MalformedTreeError{
				Path:   childPath,
				Reason: fmt.Sprintf("sibling rules test %q and %q", dn.Property, rule.Property),
			}
		}

		pred, err := b.predicate(rule, childPath+".decision_rule")
		if err != nil {
			return nil, err
		}
		sub, err := b.node(child, childPath, outputs)
		if err != nil {
			return nil, err
		}
		dn.Branches = append(dn.Branches, domain.Branch{Predicate: pred, Child: sub})
	}
	return dn, nil
}

func (b *builder) predicate(rule *dto.RuleDocument, path string) (domain.Predicate, error) {
	if rule.Property == "" {
		return nil, &domain.MalformedTreeError{Path: path, Reason: "property is required"}
	}
	prop, declared := b.cfg.Property(rule.Property)
	if !declared {
		return nil, &domain.MalformedTreeError{Path: path, Reason: fmt.Sprintf("property %q is not declared in the configuration", rule.Property)}
	}

	switch rule.Operator {
	case domain.OpLessThan:
		upper, err := number(rule.Operand, path)
		if err != nil {
			return nil, err
		}
		return domain.RangePredicate{Lower: math.Inf(-1), Upper: upper}, nil
	case domain.OpGreaterEqual:
		lower, err := number(rule.Operand, path)
		if err != nil {
			return nil, err
		}
		return domain.RangePredicate{Lower: lower, Upper: math.Inf(1)}, nil
	case domain.OpInInterval:
		bounds, ok := rule.Operand.([]any)
		if !ok || len(bounds) != 2 {
			return nil, &domain.MalformedTreeError{Path: path, Reason: "operand of [in[ must be a [lower, upper] pair"}
		}
		lower, err := number(bounds[0], path)
		if err != nil {
			return nil, err
		}
		upper, err := number(bounds[1], path)
		if err != nil {
			return nil, err
		}
		if lower > upper && !prop.Type.IsPeriodic() {
			return nil, &domain.MalformedTreeError{Path: path, Reason: fmt.Sprintf("empty interval [%v, %v[", lower, upper)}
		}
		return domain.RangePredicate{Lower: lower, Upper: upper}, nil
	case domain.OpIs:
		if rule.Operand == nil {
			return domain.MissingPredicate{}, nil
		}
		value, err := b.types[rule.Property].Normalize(rule.Operand)
		if err != nil {
			return nil, &domain.MalformedTreeError{Path: path, Reason: "operand does not match the property type", Err: err}
		}
		return domain.EqualityPredicate{Value: value}, nil
	}
	return nil, &domain.MalformedTreeError{Path: path, Reason: fmt.Sprintf("unknown operator %q", rule.Operator)}
}

func (b *builder) leaf(doc dto.NodeDocument, path string, outputs []string) (domain.Node, error) {
	pred, err := b.prediction(doc, path)
	if err != nil {
		return nil, err
	}

	leaf := &domain.Leaf{Predictions: make(map[string]domain.Prediction, len(outputs))}
	for _, output := range outputs {
		p := pred
		if t, ok := b.types[output]; ok && p.PredictedValue != nil {
			v, err := t.Normalize(p.PredictedValue)
			if err != nil {
				return nil, &domain.MalformedTreeError{Path: path, Reason: fmt.Sprintf("predicted value does not match output %q", output), Err: err}
			}
			p.PredictedValue = v
		} else if f, ok := p.PredictedValue.(json.Number); ok {
			v, _ := f.Float64()
			p.PredictedValue = v
		}
		leaf.Predictions[output] = p
	}
	return leaf, nil
}

func (b *builder) prediction(doc dto.NodeDocument, path string) (domain.Prediction, error) {
	var (
		p            domain.Prediction
		err          error
		value        any
		confidence   any
		nbSamples    any
		distribution any
	)

	if doc.Prediction != nil {
		value = doc.Prediction.Value
		confidence = doc.Prediction.Confidence
		nbSamples = doc.Prediction.NbSamples
		distribution = doc.Prediction.Distribution
	} else {
		value = doc.PredictedValue
		confidence = doc.Confidence
		nbSamples = doc.NbSamples
		distribution = doc.Distribution
		if doc.StandardDeviation != nil {
			sd, err := number(doc.StandardDeviation, path+".standard_deviation")
			if err != nil {
				return p, err
			}
			p.StandardDeviation = &sd
		}
	}

	if value == nil {
		return p, &domain.MalformedTreeError{Path: path, Reason: "leaf carries no predicted value"}
	}
	p.PredictedValue = value

	if confidence != nil {
		c, err := number(confidence, path+".confidence")
		if err != nil {
			return p, err
		}
		p.Confidence = &c
	}
	if nbSamples != nil {
		n, err := number(nbSamples, path+".nb_samples")
		if err != nil {
			return p, err
		}
		if n < 0 || n != math.Trunc(n) {
			return p, &domain.MalformedTreeError{Path: path + ".nb_samples", Reason: "must be a non-negative integer"}
		}
		count := int64(n)
		p.NbSamples = &count
	}
	if distribution != nil {
		err = b.distribution(&p, distribution, path+".distribution")
	}
	return p, err
}

func (b *builder) distribution(p *domain.Prediction, raw any, path string) error {
	switch d := raw.(type) {
	case map[string]any:
		if sd, ok := d["standard_deviation"]; ok {
			v, err := number(sd, path+".standard_deviation")
			if err != nil {
				return err
			}
			p.StandardDeviation = &v
			return nil
		}
		masses := make(map[string]float64, len(d))
		for k, v := range d {
			m, err := number(v, path+"."+k)
			if err != nil {
				return err
			}
			masses[k] = m
		}
		p.Distribution = masses
	case []any:
		if len(b.outputValues) != len(d) {
			return &domain.MalformedTreeError{
				Path:   path,
				Reason: fmt.Sprintf("array distribution has %d masses for %d output values", len(d), len(b.outputValues)),
			}
		}
		masses := make(map[string]float64, len(d))
		for i, v := range d {
			m, err := number(v, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return err
			}
			masses[domain.DistributionKey(b.outputValues[i])] = m
		}
		p.Distribution = masses
	default:
		return &domain.MalformedTreeError{Path: path, Reason: fmt.Sprintf("unsupported distribution %T", raw)}
	}
	return nil
}

func number(v any, path string) (float64, error) {
	f, ok := domain.ToFloat(v)
	if !ok {
		return 0, &domain.MalformedTreeError{Path: path, Reason: fmt.Sprintf("expected a number, got %T", v)}
	}
	return f, nil
}
