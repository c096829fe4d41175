package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/pkg/domain"
)

func TestEncode_RoundTrip(t *testing.T) {
	parser := compiler.NewParser()

	for name, doc := range map[string]string{"v1": v1Tree, "v2": v2Tree} {
		t.Run(name, func(t *testing.T) {
			tree, err := parser.Parse([]byte(doc))
			require.NoError(t, err)

			encoded, err := compiler.Encode(tree)
			require.NoError(t, err)

			again, err := parser.Parse(encoded)
			require.NoError(t, err)
			assert.Equal(t, tree.Version, again.Version)
			assert.Equal(t, tree.Configuration, again.Configuration)
			assert.Equal(t, tree.Roots, again.Roots)
		})
	}
}

func TestEncode_Errors(t *testing.T) {
	_, err := compiler.Encode(nil)
	assert.ErrorIs(t, err, domain.ErrMalformedTree)

	var cfg domain.Configuration
	cfg.Set("x", domain.Property{Type: domain.TypeEnum})
	cfg.Output = []string{"x"}
	_, err = compiler.Encode(&domain.Tree{Configuration: cfg, Roots: map[string]domain.Node{}})
	assert.ErrorIs(t, err, domain.ErrMalformedTree)
}
