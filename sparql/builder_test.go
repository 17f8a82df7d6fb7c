package sparql

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/stixgraph/errors"
	"github.com/c360/stixgraph/schema"
)

const testBase = "http://darklight.ai/ns/cyio"

func testDefinition() *schema.ModuleDefinition {
	return &schema.ModuleDefinition{
		Type: schema.TypeDefinition{ID: "RISK_RESPONSE", Name: "risk-response"},
		Identifier: schema.IdentifierDefinition{
			Contributors: []schema.Contributor{{Attribute: "name", Required: true}},
		},
		Predicates: map[string]string{
			"name":        "http://darklight.ai/ns/cyio#name",
			"description": "http://darklight.ai/ns/cyio#description",
			"origins":     "http://darklight.ai/ns/cyio#origins",
		},
	}
}

func TestSelectByIDProjection(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())

	query, queryID := b.SelectByID("risk-response--abc", NewFieldTree("name"))

	assert.Equal(t, "select-by-id-risk-response", queryID)
	assert.Contains(t, query, "?name")
	assert.Contains(t, query, `FILTER(?id = "risk-response--abc")`)
	assert.Contains(t, query, "a <http://darklight.ai/ns/cyio#RISK_RESPONSE>")

	// Projection pushdown: unrequested predicates never appear.
	assert.NotContains(t, query, "description")
	assert.NotContains(t, query, "origins")
}

func TestSelectByIDNilTreeProjectsEverything(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())

	query, _ := b.SelectByID("risk-response--abc", nil)

	assert.Contains(t, query, "?name")
	assert.Contains(t, query, "?description")
	assert.Contains(t, query, "?origins")
}

func TestSelectAllIsDeterministic(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())

	first, queryID := b.SelectAll(nil)
	second, _ := b.SelectAll(nil)

	assert.Equal(t, first, second)
	assert.Equal(t, "select-all-risk-response", queryID)
	// Sorted attribute order in the projection.
	assert.Less(t, strings.Index(first, "?description"), strings.Index(first, "?name"))
}

func TestSelectByIRI(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())
	iri := testBase + "/risk-response--abc"

	query, queryID := b.SelectByIRI(iri, NewFieldTree("name"))

	assert.Equal(t, "select-by-iri-risk-response", queryID)
	assert.Contains(t, query, "<"+iri+"> a <http://darklight.ai/ns/cyio#RISK_RESPONSE>")
	assert.Contains(t, query, "?name")
	assert.NotContains(t, query, "?origins")
}

func TestInsert(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())

	result, err := b.Insert(map[string]any{
		"name":        "Remediate CVE",
		"description": "patch the fleet",
		"ignored":     nil,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.ID, "risk-response--"))
	assert.Equal(t, schema.MintIRI(testBase, result.ID), result.IRI)
	assert.Equal(t, "insert-risk-response", result.QueryID)

	assert.True(t, strings.HasPrefix(result.Query, "INSERT DATA {"))
	assert.Contains(t, result.Query, `"Remediate CVE"`)
	assert.Contains(t, result.Query, `"patch the fleet"`)
	assert.Contains(t, result.Query, "<"+PredID+`> "`+result.ID+`"`)
	assert.Contains(t, result.Query, "<"+PredCreated+">")

	// No relationship triples inlined into the creation statement.
	assert.NotContains(t, result.Query, "#origins")
}

func TestInsertDeterministicID(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())
	input := map[string]any{"name": "same response"}

	first, err := b.Insert(input)
	require.NoError(t, err)
	second, err := b.Insert(input)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.IRI, second.IRI)
}

func TestInsertEmptyInput(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())

	_, err := b.Insert(map[string]any{"name": "", "description": nil})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyInput))
}

func TestInsertMissingIdentifierContributor(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())

	_, err := b.Insert(map[string]any{"description": "no name supplied"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestAttachDetach(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())
	owner := testBase + "/risk-response--abc"
	pred := "http://darklight.ai/ns/cyio#origins"
	t1 := testBase + "/origin--one"
	t2 := testBase + "/origin--two"

	attach, attachID := b.AttachTo(owner, pred, t1, t2)
	assert.Equal(t, "attach-risk-response", attachID)
	assert.Contains(t, attach, "INSERT DATA")
	assert.Contains(t, attach, "<"+owner+"> <"+pred+"> <"+t1+">, <"+t2+"> .")

	detach, detachID := b.DetachFrom(owner, pred, t1)
	assert.Equal(t, "detach-risk-response", detachID)
	assert.Contains(t, detach, "DELETE DATA")
	assert.Contains(t, detach, "<"+t1+">")
}

func TestUpdate(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())
	iri := testBase + "/risk-response--abc"

	query, queryID, err := b.Update(iri, map[string]any{"name": "renamed"}, []string{"description"})
	require.NoError(t, err)

	assert.Equal(t, "update-risk-response", queryID)
	assert.Contains(t, query, `INSERT { <`+iri+`> <http://darklight.ai/ns/cyio#name> "renamed" . }`)
	assert.Contains(t, query, "DELETE WHERE { <"+iri+"> <http://darklight.ai/ns/cyio#description> ?old . }")
	assert.Contains(t, query, PredModified)
}

func TestUpdateRejectsUnknownClearAttribute(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())

	_, _, err := b.Update("iri", nil, []string{"nonexistent"})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestUpdateEmptyPatch(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())

	_, _, err := b.Update("iri", map[string]any{"name": ""}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyInput))
}

func TestDeleteByIRI(t *testing.T) {
	b := NewBuilder(testBase, testDefinition())
	iri := testBase + "/risk-response--abc"

	query, queryID := b.DeleteByIRI(iri)

	assert.Equal(t, "delete-risk-response", queryID)
	assert.Equal(t, "DELETE WHERE { <"+iri+"> ?p ?o . }", query)
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{name: "string", value: "plain", expected: `"plain"`},
		{name: "string with quotes", value: `say "hi"`, expected: `"say \"hi\""`},
		{name: "string with newline", value: "a\nb", expected: `"a\nb"`},
		{name: "bool", value: true, expected: "true"},
		{name: "int", value: 42, expected: "42"},
		{name: "float", value: 2.5, expected: "2.5"},
		{name: "time", value: ts, expected: `"2024-03-01T12:00:00Z"^^<http://www.w3.org/2001/XMLSchema#dateTime>`},
		{name: "string slice", value: []string{"a", "b"}, expected: `"a", "b"`},
		{name: "any slice", value: []any{1, "x"}, expected: `1, "x"`},
		{name: "map marshals to json literal", value: map[string]any{"k": "v"}, expected: `"{\"k\":\"v\"}"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatValue(tt.value))
		})
	}
}
