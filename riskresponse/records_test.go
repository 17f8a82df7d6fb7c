package riskresponse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/stixgraph/store"
)

func TestReduceRiskResponse(t *testing.T) {
	node := ReduceRiskResponse(store.Row{
		"iri":           base + "/risk-response--abc",
		"id":            "risk-response--abc",
		"name":          "Patch the fleet",
		"response_type": "mitigate",
		"created":       "2024-05-01T09:00:00Z",
		"origins":       []any{base + "/origin--one", base + "/origin--two"},
		"props":         `{"priority":"high"}`,
	})

	assert.Equal(t, "risk-response--abc", node.ID)
	assert.Equal(t, "Patch the fleet", node.Name)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), node.Created)
	assert.Equal(t, []string{base + "/origin--one", base + "/origin--two"}, node.OriginIRIs)
	assert.Equal(t, map[string]any{"priority": "high"}, node.Props)
}

func TestReduceToleratesPartialProjection(t *testing.T) {
	node := ReduceRiskResponse(store.Row{"id": "risk-response--abc"})

	assert.Equal(t, "risk-response--abc", node.ID)
	assert.Empty(t, node.Name)
	assert.True(t, node.Created.IsZero())
	assert.Nil(t, node.OriginIRIs)
	assert.Nil(t, node.Props)
}

func TestReduceNormalizesScalarToCollection(t *testing.T) {
	// A cardinality-one result set arrives as a scalar; multi-valued
	// attributes still materialize as ordered collections.
	node := ReduceRiskResponse(store.Row{"origins": base + "/origin--only"})
	assert.Equal(t, []string{base + "/origin--only"}, node.OriginIRIs)

	origin := ReduceOrigin(store.Row{"origin_actors": base + "/actor--only"})
	assert.Equal(t, []string{base + "/actor--only"}, origin.ActorIRIs)
}

func TestReduceRisk(t *testing.T) {
	risk := ReduceRisk(store.Row{
		"id":             "risk--r1",
		"name":           "Unpatched CVE",
		"deadline":       "2024-06-01T00:00:00Z",
		"false_positive": "true",
		"occurrences":    float64(4),
		"remediations":   []string{base + "/risk-response--abc"},
	})

	assert.Equal(t, "Unpatched CVE", risk.Name)
	require.NotNil(t, risk.Deadline)
	assert.Equal(t, 2024, risk.Deadline.Year())
	assert.True(t, risk.FalsePositive)
	assert.Equal(t, 4.0, risk.Occurrences)
	assert.Len(t, risk.RemediationIRIs, 1)
}

func TestGetReducer(t *testing.T) {
	reduce, ok := GetReducer(TypeActor)
	require.True(t, ok)

	actor, isActor := reduce(store.Row{"id": "actor--a", "actor_type": "tool"}).(*Actor)
	require.True(t, isActor)
	assert.Equal(t, "tool", actor.ActorType)

	_, ok = GetReducer("unregistered")
	assert.False(t, ok)
}
