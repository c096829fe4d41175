package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
)

func TestReduceRules(t *testing.T) {
	rules := []domain.DecisionRule{
		{Property: "speed", Operator: ">=", Operand: 10.0},
		{Property: "car", Operator: "is", Operand: "Renault"},
		{Property: "speed", Operator: "<", Operand: 50.0},
		{Property: "speed", Operator: "[in[", Operand: []float64{20, 60}},
		{Property: "car", Operator: "is", Operand: "Renault"},
	}

	got := domain.ReduceRules(rules)

	assert.Equal(t, []domain.DecisionRule{
		{Property: "speed", Operator: "[in[", Operand: []float64{20, 50}},
		{Property: "car", Operator: "is", Operand: "Renault"},
	}, got)
}

func TestReduceRules_KeepsWrappingIntervals(t *testing.T) {
	rules := []domain.DecisionRule{
		{Property: "tod", Operator: "[in[", Operand: []float64{22, 2}},
		{Property: "tod", Operator: ">=", Operand: 23.0},
	}
	assert.Equal(t, rules, domain.ReduceRules(rules))
}

func TestFormatRule(t *testing.T) {
	tests := []struct {
		rule domain.DecisionRule
		typ  domain.PropertyType
		want string
	}{
		{domain.DecisionRule{Property: "speed", Operator: "<", Operand: 10.0}, domain.TypeContinuous, "speed is less than 10"},
		{domain.DecisionRule{Property: "speed", Operator: ">=", Operand: 10.5}, domain.TypeContinuous, "speed is at least 10.5"},
		{domain.DecisionRule{Property: "speed", Operator: "[in[", Operand: []float64{10, 20}}, domain.TypeContinuous, "speed is between 10 and 20"},
		{domain.DecisionRule{Property: "car", Operator: "is", Operand: "Renault"}, domain.TypeEnum, "car is Renault"},
		{domain.DecisionRule{Property: "b", Operator: "is", Operand: nil}, domain.TypeEnum, "b is missing"},
		{domain.DecisionRule{Property: "dow", Operator: "is", Operand: 0}, domain.TypeDayOfWeek, "dow is Monday"},
		{domain.DecisionRule{Property: "dow", Operator: "[in[", Operand: []float64{0, 5}}, domain.TypeDayOfWeek, "dow is from Monday to Friday"},
		{domain.DecisionRule{Property: "month", Operator: "is", Operand: 12}, domain.TypeMonthOfYear, "month is December"},
		{domain.DecisionRule{Property: "tod", Operator: ">=", Operand: 9.5}, domain.TypeTimeOfDay, "tod is after 09:30"},
		{domain.DecisionRule{Property: "tod", Operator: "[in[", Operand: []float64{22, 2}}, domain.TypeTimeOfDay, "tod is between 22:00 and 02:00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.FormatRule(tt.rule, tt.typ))
		})
	}
}

func TestConfiguration_JSONKeepsOrder(t *testing.T) {
	src := `{"context":{"zeta":{"type":"enum"},"alpha":{"type":"continuous"},"tz":{"type":"timezone","is_generated":false}},"output":["alpha"],"time_quantum":500}`

	var cfg domain.Configuration
	require.NoError(t, json.Unmarshal([]byte(src), &cfg))

	assert.Equal(t, []string{"zeta", "alpha", "tz"}, cfg.Names())
	assert.Equal(t, int64(500), cfg.TimeQuantum)
	assert.False(t, cfg.Context["tz"].Generated())
	assert.False(t, cfg.Context["alpha"].Generated())

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))
	assert.Less(t, strings.Index(string(out), "zeta"), strings.Index(string(out), "alpha"))
}

func TestProperty_Generated(t *testing.T) {
	no := false
	assert.True(t, domain.Property{Type: domain.TypeDayOfWeek}.Generated())
	assert.True(t, domain.Property{Type: domain.TypeTimezone}.Generated())
	assert.False(t, domain.Property{Type: domain.TypeMonthOfYear, IsGenerated: &no}.Generated())
	assert.False(t, domain.Property{Type: domain.TypeContinuous}.Generated())
}
