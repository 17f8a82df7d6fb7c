package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/stixgraph/errors"
)

func identifiedDefinition() *ModuleDefinition {
	return &ModuleDefinition{
		Type: TypeDefinition{ID: "RISK_RESPONSE", Name: "risk-response"},
		Identifier: IdentifierDefinition{
			Contributors: []Contributor{
				{Resolver: "normalized_name", Required: true},
				{Attribute: "created", Required: true},
			},
		},
		Resolvers: map[string]ResolverFunc{
			"normalized_name": NormalizeName,
		},
	}
}

func TestDeriveIDIsDeterministic(t *testing.T) {
	def := identifiedDefinition()
	input := map[string]any{"name": "Remediate CVE-2024-1234", "created": "2024-03-01T00:00:00Z"}

	first, err := DeriveID(def, input)
	require.NoError(t, err)
	second, err := DeriveID(def, input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "risk-response--"))
}

func TestDeriveIDNormalizesEquivalentNames(t *testing.T) {
	def := identifiedDefinition()

	a, err := DeriveID(def, map[string]any{"name": "Remediate  CVE", "created": "2024-03-01"})
	require.NoError(t, err)
	b, err := DeriveID(def, map[string]any{"name": " remediate cve ", "created": "2024-03-01"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDeriveIDDistinguishesDifferentContent(t *testing.T) {
	def := identifiedDefinition()

	a, err := DeriveID(def, map[string]any{"name": "response one", "created": "2024-03-01"})
	require.NoError(t, err)
	b, err := DeriveID(def, map[string]any{"name": "response two", "created": "2024-03-01"})
	require.NoError(t, err)
	c, err := DeriveID(def, map[string]any{"name": "response one", "created": "2024-04-01"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDeriveIDMissingRequiredContributor(t *testing.T) {
	def := identifiedDefinition()

	_, err := DeriveID(def, map[string]any{"created": "2024-03-01"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = DeriveID(def, map[string]any{"name": "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingAttribute))
}

func TestDeriveIDOptionalContributorSkipped(t *testing.T) {
	def := identifiedDefinition()
	def.Identifier.Contributors = []Contributor{
		{Attribute: "name", Required: true},
		{Attribute: "version", Required: false},
	}
	def.Resolvers = nil

	withVersion, err := DeriveID(def, map[string]any{"name": "resp", "version": "2"})
	require.NoError(t, err)
	withoutVersion, err := DeriveID(def, map[string]any{"name": "resp"})
	require.NoError(t, err)

	assert.NotEqual(t, withVersion, withoutVersion)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]any
		expected string
		wantErr  bool
	}{
		{name: "folds case", input: map[string]any{"name": "Patch NOW"}, expected: "patch now"},
		{name: "collapses whitespace", input: map[string]any{"name": "  a \t b\n c "}, expected: "a b c"},
		{name: "missing name", input: map[string]any{}, wantErr: true},
		{name: "empty name", input: map[string]any{"name": ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeName(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMintAndParseIRI(t *testing.T) {
	base := "http://darklight.ai/ns/cyio"
	iri := MintIRI(base, "risk-response--8c0a1f6e-3f2b-5c4d-9e7a-1b2c3d4e5f60")

	typeName, id, ok := ParseIRI(base, iri)
	require.True(t, ok)
	assert.Equal(t, "risk-response", typeName)
	assert.Equal(t, "risk-response--8c0a1f6e-3f2b-5c4d-9e7a-1b2c3d4e5f60", id)
}

func TestParseIRIRejectsForeignShapes(t *testing.T) {
	base := "http://darklight.ai/ns/cyio"

	tests := []struct {
		name string
		iri  string
	}{
		{name: "foreign namespace", iri: "http://elsewhere.example/risk-response--abc"},
		{name: "no discriminator", iri: base + "/someopaquenode"},
		{name: "empty id after discriminator", iri: base + "/risk-response--"},
		{name: "leading separator", iri: base + "/--abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := ParseIRI(base, tt.iri)
			assert.False(t, ok)
		})
	}
}
