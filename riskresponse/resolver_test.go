package riskresponse

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/stixgraph/config"
	"github.com/c360/stixgraph/errors"
	"github.com/c360/stixgraph/paging"
	"github.com/c360/stixgraph/schema"
	"github.com/c360/stixgraph/sparql"
	"github.com/c360/stixgraph/store"
)

const base = "http://darklight.ai/ns/cyio"

func newTestRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, RegisterAll(reg))
	require.NoError(t, reg.Bootstrap())
	return reg
}

func newTestResolver(t *testing.T, driver store.Driver) *Resolver {
	t.Helper()
	r, err := NewResolver(config.Default(), newTestRegistry(t), driver)
	require.NoError(t, err)
	return r
}

// mutationIDs returns the query identifiers of every mutating driver
// call in execution order.
func mutationIDs(d *store.MemDriver) []string {
	var ids []string
	for _, c := range d.Calls() {
		switch c.Method {
		case "Create", "Edit", "Delete":
			ids = append(ids, c.Request.QueryID)
		}
	}
	return ids
}

func deriveTestID(t *testing.T, def schema.ModuleDefinition, input map[string]any) (string, string) {
	t.Helper()
	id, err := schema.DeriveID(&def, input)
	require.NoError(t, err)
	return id, schema.MintIRI(base, id)
}

func TestNewResolverRequiresBootstrappedRegistry(t *testing.T) {
	reg := schema.NewRegistry()
	require.NoError(t, RegisterAll(reg))

	_, err := NewResolver(config.Default(), reg, store.NewMemDriver())
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestGetAbsentReturnsNil(t *testing.T) {
	r := newTestResolver(t, store.NewMemDriver())

	node, err := r.Get(context.Background(), "risk-response--missing", nil)
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestGetProjectionNeverResolvesUnrequestedRelationships(t *testing.T) {
	driver := store.NewMemDriver().
		Stub("select-by-id-risk-response", "", store.Row{
			"iri":  base + "/risk-response--abc",
			"id":   "risk-response--abc",
			"name": "Patch the fleet",
		})
	r := newTestResolver(t, driver)

	node, err := r.Get(context.Background(), "risk-response--abc", sparql.NewFieldTree("name"))
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "Patch the fleet", node.Name)

	calls := driver.Calls()
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].Request.SPARQL, "origins")
}

func TestCreateChoreography(t *testing.T) {
	riskIRI := base + "/risk--r1"
	input := CreateInput{
		Name:         "Patch the fleet",
		ResponseType: "mitigate",
		RiskID:       "risk--r1",
		Origins: []OriginInput{{
			Actors: []ActorInput{
				{ActorType: "tool", ActorRef: "tool--scanner"},
				{ActorType: "party", ActorRef: "party--secops"},
			},
		}},
	}

	respID, respIRI := deriveTestID(t, riskResponseDefinition(),
		map[string]any{"name": input.Name})
	summary := "tool:tool--scanner,party:party--secops"
	originID, originIRI := deriveTestID(t, originDefinition(),
		map[string]any{"origin_summary": summary})
	_, actor1IRI := deriveTestID(t, actorDefinition(),
		map[string]any{"actor_type": "tool", "actor_ref": "tool--scanner"})
	_, actor2IRI := deriveTestID(t, actorDefinition(),
		map[string]any{"actor_type": "party", "actor_ref": "party--secops"})

	driver := store.NewMemDriver().
		Stub("select-by-id-risk", "risk--r1", store.Row{"iri": riskIRI, "id": "risk--r1"}).
		// Matches only the projected re-fetch, not the bare existence
		// probe, so the creation takes the insert path.
		Stub("select-by-id-risk-response", "?name", store.Row{
			"iri":           respIRI,
			"id":            respID,
			"name":          input.Name,
			"response_type": input.ResponseType,
			"origins":       originIRI,
		}).
		Stub("select-by-iri-origin", originIRI, store.Row{
			"id":             originID,
			"origin_summary": summary,
			"origin_actors":  []any{actor1IRI, actor2IRI},
		}).
		Stub("select-by-iri-actor", actor1IRI, store.Row{
			"id": strings.TrimPrefix(actor1IRI, base+"/"), "actor_type": "tool", "actor_ref": "tool--scanner",
		}).
		Stub("select-by-iri-actor", actor2IRI, store.Row{
			"id": strings.TrimPrefix(actor2IRI, base+"/"), "actor_type": "party", "actor_ref": "party--secops",
		})
	r := newTestResolver(t, driver)

	node, err := r.Create(context.Background(), input, nil)
	require.NoError(t, err)
	require.NotNil(t, node)

	assert.Equal(t, respID, node.ID)
	require.Len(t, node.Origins, 1)
	assert.Len(t, node.Origins[0].Actors, 2)

	assert.Equal(t, []string{
		"insert-risk-response",
		"insert-origin",
		"insert-actor",
		"insert-actor",
		"attach-origin",        // actors onto the origin
		"attach-risk-response", // origin onto the response
		"attach-risk",          // response onto its owning risk
	}, mutationIDs(driver))
}

func TestCreateFailsBeforeAnyWriteWhenReferenceMissing(t *testing.T) {
	driver := store.NewMemDriver()
	r := newTestResolver(t, driver)

	_, err := r.Create(context.Background(), CreateInput{
		Name:         "Patch the fleet",
		ResponseType: "mitigate",
		RiskID:       "risk--missing",
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrReferenceNotFound))
	assert.Empty(t, mutationIDs(driver))
}

func TestCreateValidatesInputBeforeLookups(t *testing.T) {
	driver := store.NewMemDriver()
	r := newTestResolver(t, driver)

	// response_type is externally mandatory.
	_, err := r.Create(context.Background(), CreateInput{Name: "no type"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, driver.Calls())
}

func TestCreateMergesUpsertAttributesOnCollision(t *testing.T) {
	input := CreateInput{
		Name:         "Patch the fleet",
		ResponseType: "mitigate",
		Description:  "rolled forward",
	}
	respID, respIRI := deriveTestID(t, riskResponseDefinition(),
		map[string]any{"name": input.Name})

	driver := store.NewMemDriver().
		Stub("select-by-id-risk-response", respID, store.Row{
			"iri":         respIRI,
			"id":          respID,
			"name":        input.Name,
			"description": "rolled forward",
		})
	r := newTestResolver(t, driver)

	node, err := r.Create(context.Background(), input, sparql.NewFieldTree("name", "description"))
	require.NoError(t, err)
	assert.Equal(t, "rolled forward", node.Description)

	// The colliding create never inserts: it merges the upsert-flagged
	// description into the existing entity.
	assert.Equal(t, []string{"update-risk-response"}, mutationIDs(driver))
}

func TestCreateCollisionWithoutUpsertAttributesFails(t *testing.T) {
	input := CreateInput{Name: "Patch the fleet", ResponseType: "mitigate"}
	respID, respIRI := deriveTestID(t, riskResponseDefinition(),
		map[string]any{"name": input.Name})

	driver := store.NewMemDriver().
		Stub("select-by-id-risk-response", respID, store.Row{"iri": respIRI, "id": respID})
	r := newTestResolver(t, driver)

	// name and response_type are identity/required fields, not
	// upsert-flagged, so the collision has nothing to merge.
	_, err := r.Create(context.Background(), input, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, mutationIDs(driver))
}

func TestEditAdjustsScalableAttribute(t *testing.T) {
	respID := "risk-response--abc"
	respIRI := base + "/" + respID
	driver := store.NewMemDriver().
		Stub("select-by-id-risk-response", respID, store.Row{
			"iri":  respIRI,
			"id":   respID,
			"name": "Patch the fleet",
			"rank": float64(3),
		})
	r := newTestResolver(t, driver)

	_, err := r.Edit(context.Background(), respID, EditInput{
		Adjust: map[string]float64{"rank": 2},
	}, sparql.NewFieldTree("name"))
	require.NoError(t, err)

	calls := driver.Calls()
	var update string
	for _, c := range calls {
		if c.Request.QueryID == "update-risk-response" {
			update = c.Request.SPARQL
		}
	}
	require.NotEmpty(t, update)
	assert.Contains(t, update, "rank> 5")
}

func TestEditRejectsAdjustOnNonScalableAttribute(t *testing.T) {
	r := newTestResolver(t, store.NewMemDriver())

	_, err := r.Edit(context.Background(), "risk-response--abc", EditInput{
		Adjust: map[string]float64{"name": 1},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestDeleteChoreography(t *testing.T) {
	respID := "risk-response--dead"
	respIRI := base + "/" + respID
	originIRI := base + "/origin--o1"
	riskIRI := base + "/risk--r1"

	driver := store.NewMemDriver().
		Stub("select-by-id-risk-response", respID, store.Row{
			"iri":     respIRI,
			"id":      respID,
			"name":    "Patch the fleet",
			"origins": originIRI,
		}).
		Stub("select-by-id-risk", "risk--r1", store.Row{"iri": riskIRI, "id": "risk--r1"})
	r := newTestResolver(t, driver)

	deleted, err := r.Delete(context.Background(), respID, "risk--r1")
	require.NoError(t, err)
	assert.Equal(t, respID, deleted)

	assert.Equal(t, []string{
		"detach-risk",
		"delete-origin",
		"delete-risk-response",
	}, mutationIDs(driver))
}

func TestDeleteSkipsMismatchedOriginReferences(t *testing.T) {
	respID := "risk-response--dead"
	driver := store.NewMemDriver().
		Stub("select-by-id-risk-response", respID, store.Row{
			"iri":     base + "/" + respID,
			"id":      respID,
			"origins": []any{base + "/asset--not-an-origin", "http://elsewhere/origin--x"},
		})
	r := newTestResolver(t, driver)

	_, err := r.Delete(context.Background(), respID, "")
	require.NoError(t, err)

	// Neither stale reference produced a cascade delete.
	assert.Equal(t, []string{"delete-risk-response"}, mutationIDs(driver))
}

func TestDeleteAbsentIsNotFound(t *testing.T) {
	r := newTestResolver(t, store.NewMemDriver())

	_, err := r.Delete(context.Background(), "risk-response--missing", "")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestEdit(t *testing.T) {
	respID := "risk-response--abc"
	respIRI := base + "/" + respID
	driver := store.NewMemDriver().
		Stub("select-by-id-risk-response", respID, store.Row{
			"iri":  respIRI,
			"id":   respID,
			"name": "Renamed",
		})
	r := newTestResolver(t, driver)

	node, err := r.Edit(context.Background(), respID, EditInput{
		Set:   map[string]any{"name": "Renamed"},
		Clear: []string{"description"},
	}, sparql.NewFieldTree("name"))
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, "Renamed", node.Name)

	assert.Equal(t, []string{"update-risk-response"}, mutationIDs(driver))
}

func TestEditRejectsBadPatches(t *testing.T) {
	r := newTestResolver(t, store.NewMemDriver())
	ctx := context.Background()

	_, err := r.Edit(ctx, "risk-response--abc", EditInput{}, nil)
	assert.True(t, errors.IsValidation(err))

	_, err = r.Edit(ctx, "risk-response--abc", EditInput{
		Set: map[string]any{"nonexistent": "v"},
	}, nil)
	assert.True(t, errors.IsValidation(err))

	// name is externally mandatory and cannot be cleared.
	_, err = r.Edit(ctx, "risk-response--abc", EditInput{
		Clear: []string{"name"},
	}, nil)
	assert.True(t, errors.IsValidation(err))
}

func TestEditAbsentIsNotFound(t *testing.T) {
	r := newTestResolver(t, store.NewMemDriver())

	_, err := r.Edit(context.Background(), "risk-response--missing", EditInput{
		Set: map[string]any{"name": "whatever"},
	}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestListEmptyMatchIsEmptyConnection(t *testing.T) {
	r := newTestResolver(t, store.NewMemDriver())

	conn, err := r.List(context.Background(), paging.ListArgs{}, nil)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Empty(t, conn.Edges)
	assert.Zero(t, conn.PageInfo.GlobalCount)
}

func listFixture() *store.MemDriver {
	rows := []store.Row{
		{"iri": base + "/risk-response--a", "id": "risk-response--a", "name": "avoid exposure", "response_type": "avoid"},
		{"iri": base + "/risk-response--b", "id": "risk-response--b", "name": "mitigate cve", "response_type": "mitigate"},
		{"iri": base + "/risk-response--c", "id": "risk-response--c", "name": "transfer liability", "response_type": "transfer"},
	}
	return store.NewMemDriver().Stub("select-all-risk-response", "", rows...)
}

func TestListFilterAndOrder(t *testing.T) {
	r := newTestResolver(t, listFixture())

	conn, err := r.List(context.Background(), paging.ListArgs{
		Filters: &paging.FilterGroup{
			Filters: []paging.Filter{
				{Key: "response_type", Operator: paging.OpNotEq, Values: []string{"transfer"}},
			},
		},
		OrderedBy: "name",
		OrderMode: paging.OrderDesc,
	}, nil)
	require.NoError(t, err)

	require.Len(t, conn.Edges, 2)
	assert.Equal(t, "mitigate cve", conn.Edges[0].Node.Name)
	assert.Equal(t, "avoid exposure", conn.Edges[1].Node.Name)
	assert.Equal(t, 2, conn.PageInfo.GlobalCount)
}

func TestListPaginationInvariants(t *testing.T) {
	r := newTestResolver(t, listFixture())

	conn, err := r.List(context.Background(), paging.ListArgs{First: 2, Offset: 1, OrderedBy: "id"}, nil)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(conn.Edges), 2)
	assert.GreaterOrEqual(t, conn.PageInfo.GlobalCount, len(conn.Edges))
	assert.Equal(t, 3, conn.PageInfo.GlobalCount)
	assert.Equal(t, "risk-response--b", conn.Edges[0].Node.ID)
	assert.True(t, conn.PageInfo.HasPreviousPage)
	assert.False(t, conn.PageInfo.HasNextPage)
}

func TestListWildcardFilter(t *testing.T) {
	r := newTestResolver(t, listFixture())

	conn, err := r.List(context.Background(), paging.ListArgs{
		Filters: &paging.FilterGroup{
			Filters: []paging.Filter{
				{Key: "name", Operator: paging.OpWildcard, Values: []string{"*cve*"}},
			},
		},
	}, nil)
	require.NoError(t, err)

	require.Len(t, conn.Edges, 1)
	assert.Equal(t, "mitigate cve", conn.Edges[0].Node.Name)
}

func TestLookupCacheSavesRoundTrips(t *testing.T) {
	respID := "risk-response--abc"
	respIRI := base + "/" + respID
	driver := store.NewMemDriver().
		Stub("select-by-id-risk-response", respID, store.Row{"iri": respIRI, "id": respID, "name": "n"})
	r := newTestResolver(t, driver)
	ctx := context.Background()

	_, err := r.Edit(ctx, respID, EditInput{Set: map[string]any{"name": "first"}}, sparql.NewFieldTree("name"))
	require.NoError(t, err)
	callsAfterFirst := len(driver.Calls())

	_, err = r.Edit(ctx, respID, EditInput{Set: map[string]any{"name": "second"}}, sparql.NewFieldTree("name"))
	require.NoError(t, err)

	// The second edit skips the existence lookup: one update plus one
	// re-fetch instead of three calls.
	assert.Equal(t, callsAfterFirst+2, len(driver.Calls()))
}
