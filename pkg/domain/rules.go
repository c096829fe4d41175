package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	dayNames   = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	monthNames = [...]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
)

// ReduceRules merges the numeric rules that test the same property into the
// tightest interval, keeping the order in which properties first appear.
// Rules on wrapping intervals and non-numeric rules are kept unchanged.
func ReduceRules(rules []DecisionRule) []DecisionRule {
	type group struct {
		property string
		rules    []DecisionRule
	}
	var groups []*group
	index := make(map[string]*group)
	for _, r := range rules {
		g, ok := index[r.Property]
		if !ok {
			g = &group{property: r.Property}
			index[r.Property] = g
			groups = append(groups, g)
		}
		g.rules = append(g.rules, r)
	}

	out := make([]DecisionRule, 0, len(rules))
	for _, g := range groups {
		out = append(out, reduceGroup(g.property, g.rules)...)
	}
	return out
}

func reduceGroup(property string, rules []DecisionRule) []DecisionRule {
	if len(rules) == 1 {
		return rules
	}
	lower, upper := negInf, posInf
	for _, r := range rules {
		l, u, ok := r.Bounds()
		if !ok || l > u {
			return dedupe(rules)
		}
		lower = math.Max(lower, l)
		upper = math.Min(upper, u)
	}
	return []DecisionRule{RangePredicate{Lower: lower, Upper: upper}.Rule(property)}
}

func dedupe(rules []DecisionRule) []DecisionRule {
	out := rules[:0:0]
	for _, r := range rules {
		dup := false
		for _, seen := range out {
			if seen.Operator == r.Operator && fmt.Sprint(seen.Operand) == fmt.Sprint(r.Operand) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

// FormatRule renders a rule as a short sentence, using the property type to
// name days and months and to print times of day as HH:MM.
func FormatRule(r DecisionRule, t PropertyType) string {
	if r.IsMissing() {
		return r.Property + " is missing"
	}
	switch r.Operator {
	case OpLessThan:
		if t.IsPeriodic() {
			return fmt.Sprintf("%s is before %s", r.Property, formatOperand(r.Operand, t))
		}
		return fmt.Sprintf("%s is less than %s", r.Property, formatOperand(r.Operand, t))
	case OpGreaterEqual:
		if t.IsPeriodic() {
			return fmt.Sprintf("%s is after %s", r.Property, formatOperand(r.Operand, t))
		}
		return fmt.Sprintf("%s is at least %s", r.Property, formatOperand(r.Operand, t))
	case OpInInterval:
		l, u, ok := r.Bounds()
		if !ok {
			break
		}
		if t == TypeDayOfWeek || t == TypeMonthOfYear {
			return fmt.Sprintf("%s is from %s to %s", r.Property, formatOperand(l, t), formatOperand(u-1, t))
		}
		return fmt.Sprintf("%s is between %s and %s", r.Property, formatOperand(l, t), formatOperand(u, t))
	case OpIs:
		return fmt.Sprintf("%s is %s", r.Property, formatOperand(r.Operand, t))
	}
	return fmt.Sprintf("%s %s %v", r.Property, r.Operator, r.Operand)
}

// FormatRules joins formatted rules with " and ".
func FormatRules(rules []DecisionRule, cfg Configuration) string {
	parts := make([]string, len(rules))
	for i, r := range rules {
		parts[i] = FormatRule(r, cfg.Context[r.Property].Type)
	}
	return strings.Join(parts, " and ")
}

func formatOperand(v any, t PropertyType) string {
	f, isNum := ToFloat(v)
	switch {
	case t == TypeDayOfWeek && isNum:
		d := ((int(f) % 7) + 7) % 7
		return dayNames[d]
	case t == TypeMonthOfYear && isNum:
		m := ((int(f)-1)%12+12)%12 + 1
		return monthNames[m-1]
	case t == TypeTimeOfDay && isNum:
		secs := int(math.Round(f * 3600))
		return fmt.Sprintf("%02d:%02d", (secs/3600)%24, (secs%3600)/60)
	case isNum:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
