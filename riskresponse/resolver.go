package riskresponse

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/stixgraph/config"
	"github.com/c360/stixgraph/errors"
	"github.com/c360/stixgraph/metric"
	"github.com/c360/stixgraph/paging"
	"github.com/c360/stixgraph/schema"
	"github.com/c360/stixgraph/sparql"
	"github.com/c360/stixgraph/store"
)

// Resolver orchestrates the risk-response operations: it sequences query
// builder calls and store driver calls, performs existence checks before
// any mutating query runs, and owns the create/delete choreography.
//
// Multi-step mutations are sequential because later steps depend on IRIs
// produced by earlier steps. A failure mid-choreography is surfaced to
// the caller and never rolled back; every committed step is journaled so
// partial writes stay discoverable.
type Resolver struct {
	registry *schema.Registry
	driver   store.Driver
	journal  *store.Journal
	metrics  *metric.Registry
	logger   *slog.Logger

	baseIRI  string
	paging   config.PagingConfig
	builders map[string]*sparql.Builder
	lookups  *lookupCache
}

// ResolverOption configures the resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics attaches a metric registry.
func WithMetrics(m *metric.Registry) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithJournal attaches the mutation journal.
func WithJournal(j *store.Journal) ResolverOption {
	return func(r *Resolver) {
		r.journal = j
	}
}

// NewResolver builds the resolver over a bootstrapped registry. The
// registry must already be frozen: the resolver captures one query
// builder per type at construction and never consults mutable state.
func NewResolver(cfg *config.Config, registry *schema.Registry, driver store.Driver, opts ...ResolverOption) (*Resolver, error) {
	if !registry.Frozen() {
		return nil, errors.Validationf("riskresponse", "NewResolver", "registry is not bootstrapped")
	}

	r := &Resolver{
		registry: registry,
		driver:   driver,
		logger:   slog.Default().With("component", "riskresponse"),
		baseIRI:  cfg.Namespace.BaseIRI,
		paging:   cfg.Paging,
		builders: make(map[string]*sparql.Builder),
		lookups:  newLookupCache(cfg.Store.LookupCacheTTL),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, typeName := range []string{
		TypeRiskResponse, TypeOrigin, TypeActor, TypeRisk,
		TypeAsset, TypeTask, TypeLabel, TypeMarking,
	} {
		def, err := registry.Definition(typeName)
		if err != nil {
			return nil, err
		}
		r.builders[typeName] = sparql.NewBuilder(cfg.Namespace.BaseIRI, def)
	}
	return r, nil
}

func (r *Resolver) builder(typeName string) *sparql.Builder {
	return r.builders[typeName]
}

// ActorInput describes one actor embedded in an origin.
type ActorInput struct {
	ActorType string `json:"actor_type"`
	ActorRef  string `json:"actor_ref"`
}

// OriginInput describes one origin embedded in a creation request.
type OriginInput struct {
	Actors []ActorInput `json:"origin_actors"`
}

// CreateInput is the external creation request. References to other
// entities are supplied by stable identifier and resolved to IRIs before
// any write runs.
type CreateInput struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	ResponseType string         `json:"response_type"`
	Lifecycle    string         `json:"lifecycle"`
	Props        map[string]any `json:"props"`

	RiskID         string        `json:"risk_id"`
	Origins        []OriginInput `json:"origins"`
	RequiredAssets []string      `json:"required_assets"`
	Tasks          []string      `json:"tasks"`
	Labels         []string      `json:"labels"`
}

// EditInput is a sparse patch: Set replaces attribute values, Clear
// removes them entirely, Adjust applies a relative delta to scalable
// numeric attributes. Absence from all three means "leave unchanged".
type EditInput struct {
	Set    map[string]any     `json:"set"`
	Clear  []string           `json:"clear"`
	Adjust map[string]float64 `json:"adjust"`
}

// List returns a page of responses. An empty match set is an empty
// connection, not an error. Ordering, post-fetch filtering, offset and
// limit are applied in memory: store-side ordering is not assumed
// available for every field.
func (r *Resolver) List(ctx context.Context, args paging.ListArgs, fields *sparql.FieldTree) (*paging.Connection[*RiskResponse], error) {
	start := time.Now()
	defer r.metrics.ObserveDuration(TypeRiskResponse, "list", start)
	r.metrics.ObserveQuery(TypeRiskResponse, "list")

	first := args.First
	if first <= 0 {
		first = r.paging.DefaultFirst
	}
	if r.paging.MaxFirst > 0 && first > r.paging.MaxFirst {
		first = r.paging.MaxFirst
	}

	query, queryID := r.builder(TypeRiskResponse).SelectAll(fields)
	rows, err := r.driver.QueryAll(ctx, store.Request{QueryID: queryID, SPARQL: query})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return paging.EmptyConnection[*RiskResponse](), nil
	}

	nodes := make([]*RiskResponse, 0, len(rows))
	filters := paging.CleanFilters(args.Filters)
	for _, row := range rows {
		node := ReduceRiskResponse(row)
		if !filters.Matches(r.filterValues(node)) {
			continue
		}
		nodes = append(nodes, node)
	}
	if len(nodes) == 0 {
		return paging.EmptyConnection[*RiskResponse](), nil
	}

	if args.OrderedBy != "" {
		sortNodes(nodes, args.OrderedBy, args.OrderMode)
	}

	return paging.Paginate(nodes, args.Offset, first, func(n *RiskResponse) string { return n.ID }), nil
}

// Get fetches one response by stable identifier. Absence returns nil
// without an error: not found is a result for a lookup. Relationship
// fields present in the projection are materialized before returning.
func (r *Resolver) Get(ctx context.Context, id string, fields *sparql.FieldTree) (*RiskResponse, error) {
	start := time.Now()
	defer r.metrics.ObserveDuration(TypeRiskResponse, "get", start)
	r.metrics.ObserveQuery(TypeRiskResponse, "get")

	query, queryID := r.builder(TypeRiskResponse).SelectByID(id, fields)
	row, err := r.driver.QueryByID(ctx, store.Request{QueryID: queryID, SPARQL: query})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}

	node := ReduceRiskResponse(row)
	if err := r.materialize(ctx, node, fields); err != nil {
		return nil, err
	}
	return node, nil
}

// Create runs the creation choreography:
//
//  1. validate the cleaned input against the attribute schema;
//  2. resolve every external reference to its IRI, failing before any
//     write when one does not exist;
//  3. insert the response's own attributes;
//  4. per embedded origin: insert the origin, insert its actors, attach
//     the actors to the origin, attach the origin to the response —
//     every insert committed before the attach that depends on it;
//  5. attach referenced assets, tasks and labels;
//  6. attach the response to its owning risk when one was specified;
//  7. re-fetch by identifier with the caller's projection, so the
//     response reflects exactly what was persisted.
func (r *Resolver) Create(ctx context.Context, input CreateInput, fields *sparql.FieldTree) (*RiskResponse, error) {
	start := time.Now()
	defer r.metrics.ObserveDuration(TypeRiskResponse, "create", start)
	r.metrics.ObserveMutation(TypeRiskResponse, "create")

	attrs := schema.CleanInput(map[string]any{
		"name":          input.Name,
		"description":   input.Description,
		"response_type": input.ResponseType,
		"lifecycle":     input.Lifecycle,
		"props":         input.Props,
	})
	if err := r.registry.Attributes().ValidateInput(TypeRiskResponse, attrs); err != nil {
		return nil, err
	}

	refs, err := r.resolveReferences(ctx, input)
	if err != nil {
		return nil, err
	}

	rrBuilder := r.builder(TypeRiskResponse)
	inserted, err := rrBuilder.Insert(attrs)
	if err != nil {
		return nil, err
	}

	// The derived identifier may already exist: semantically equal inputs
	// always collide. Upsert-flagged attributes merge into the existing
	// entity; a collision with nothing to merge is a validation error.
	if existingIRI, exists, err := r.existingIRI(ctx, inserted.ID); err != nil {
		return nil, err
	} else if exists {
		if err := r.mergeExisting(ctx, existingIRI, inserted.ID, attrs); err != nil {
			return nil, err
		}
		inserted.IRI = existingIRI
	} else if err := r.create(ctx, TypeRiskResponse, inserted); err != nil {
		return nil, err
	}

	rrDef, _ := r.registry.Definition(TypeRiskResponse)
	originsPred := rrDef.Predicates["origins"]

	for _, origin := range input.Origins {
		originIRI, err := r.createOrigin(ctx, origin)
		if err != nil {
			return nil, err
		}
		if err := r.attach(ctx, TypeRiskResponse, inserted.IRI, originsPred, originIRI); err != nil {
			return nil, err
		}
	}

	for _, ref := range []struct {
		predicate string
		iris      []string
	}{
		{rrDef.Predicates["required_assets"], refs.assets},
		{rrDef.Predicates["tasks"], refs.tasks},
		{rrDef.Predicates["labels"], refs.labels},
	} {
		if len(ref.iris) == 0 {
			continue
		}
		if err := r.attach(ctx, TypeRiskResponse, inserted.IRI, ref.predicate, ref.iris...); err != nil {
			return nil, err
		}
	}

	if refs.risk != "" {
		riskDef, _ := r.registry.Definition(TypeRisk)
		if err := r.attach(ctx, TypeRisk, refs.risk, riskDef.Predicates["remediations"], inserted.IRI); err != nil {
			return nil, err
		}
	}

	r.logger.Info("risk response created",
		"id", inserted.ID,
		"origins", len(input.Origins),
		"risk_id", input.RiskID,
	)
	return r.Get(ctx, inserted.ID, fields)
}

// existingIRI probes for an entity with the derived identifier. Unlike
// lookupIRI, absence is a normal answer, not a validation error.
func (r *Resolver) existingIRI(ctx context.Context, id string) (string, bool, error) {
	query, queryID := r.builder(TypeRiskResponse).SelectByID(id, sparql.NewFieldTree())
	row, err := r.driver.QueryByID(ctx, store.Request{QueryID: queryID, SPARQL: query})
	if err != nil {
		return "", false, err
	}
	if row == nil {
		return "", false, nil
	}
	return rowString(row, "iri"), true, nil
}

// mergeExisting merges the upsert-flagged attributes of a colliding
// creation into the existing entity.
func (r *Resolver) mergeExisting(ctx context.Context, iri, id string, attrs map[string]any) error {
	set := make(map[string]any)
	registry := r.registry.Attributes()
	for name, value := range attrs {
		if def, ok := registry.Attribute(TypeRiskResponse, name); ok && def.Upsert {
			set[name] = value
		}
	}
	if len(set) == 0 {
		return errors.Validationf("riskresponse", "Create",
			"%s already exists and the input carries no upsert attributes", id)
	}

	query, queryID, err := r.builder(TypeRiskResponse).Update(iri, set, nil)
	if err != nil {
		return err
	}
	if err := r.driver.Edit(ctx, store.Request{QueryID: queryID, SPARQL: query}); err != nil {
		return err
	}
	r.journal.Record(store.JournalEntry{
		Operation:  "upsert",
		EntityType: TypeRiskResponse,
		EntityID:   id,
		IRI:        iri,
		QueryID:    queryID,
	})
	r.logger.Info("risk response upserted", "id", id, "merged", len(set))
	return nil
}

// resolvedRefs holds the IRIs of every externally referenced entity,
// resolved before the first write.
type resolvedRefs struct {
	risk   string
	assets []string
	tasks  []string
	labels []string
}

// resolveReferences resolves every external identifier in the input to
// its IRI, failing with a validation error when one does not exist. This
// runs before any mutating query to avoid partial writes over dangling
// references.
func (r *Resolver) resolveReferences(ctx context.Context, input CreateInput) (*resolvedRefs, error) {
	refs := &resolvedRefs{}

	if input.RiskID != "" {
		iri, err := r.lookupIRI(ctx, TypeRisk, input.RiskID)
		if err != nil {
			return nil, err
		}
		refs.risk = iri
	}

	for _, group := range []struct {
		typeName string
		ids      []string
		out      *[]string
	}{
		{TypeAsset, input.RequiredAssets, &refs.assets},
		{TypeTask, input.Tasks, &refs.tasks},
		{TypeLabel, input.Labels, &refs.labels},
	} {
		for _, id := range group.ids {
			iri, err := r.lookupIRI(ctx, group.typeName, id)
			if err != nil {
				return nil, err
			}
			*group.out = append(*group.out, iri)
		}
	}
	return refs, nil
}

// createOrigin inserts one origin with its embedded actors: actors are
// committed before the attach that references them.
func (r *Resolver) createOrigin(ctx context.Context, input OriginInput) (string, error) {
	if len(input.Actors) == 0 {
		return "", errors.Validationf("riskresponse", "Create", "origin declares no actors")
	}

	summaries := make([]string, 0, len(input.Actors))
	for _, actor := range input.Actors {
		summaries = append(summaries, actor.ActorType+":"+actor.ActorRef)
	}

	originBuilder := r.builder(TypeOrigin)
	inserted, err := originBuilder.Insert(map[string]any{
		"origin_summary": strings.Join(summaries, ","),
	})
	if err != nil {
		return "", err
	}
	if err := r.create(ctx, TypeOrigin, inserted); err != nil {
		return "", err
	}

	actorIRIs := make([]string, 0, len(input.Actors))
	for _, actor := range input.Actors {
		actorInserted, err := r.builder(TypeActor).Insert(map[string]any{
			"actor_type": actor.ActorType,
			"actor_ref":  actor.ActorRef,
		})
		if err != nil {
			return "", err
		}
		if err := r.create(ctx, TypeActor, actorInserted); err != nil {
			return "", err
		}
		actorIRIs = append(actorIRIs, actorInserted.IRI)
	}

	originDef, _ := r.registry.Definition(TypeOrigin)
	actorsPred := originDef.Predicates["origin_actors"]
	if err := r.attach(ctx, TypeOrigin, inserted.IRI, actorsPred, actorIRIs...); err != nil {
		return "", err
	}
	return inserted.IRI, nil
}

// Edit applies a sparse patch and returns the re-fetched entity. Edits
// never need the create choreography: they create no referenced
// entities.
func (r *Resolver) Edit(ctx context.Context, id string, patch EditInput, fields *sparql.FieldTree) (*RiskResponse, error) {
	start := time.Now()
	defer r.metrics.ObserveDuration(TypeRiskResponse, "edit", start)
	r.metrics.ObserveMutation(TypeRiskResponse, "edit")

	if err := r.validatePatch(patch); err != nil {
		return nil, err
	}

	iri, err := r.lookupIRI(ctx, TypeRiskResponse, id)
	if err != nil {
		if errors.Is(err, errors.ErrReferenceNotFound) {
			return nil, errors.WrapNotFound(errors.ErrEntityNotFound, "riskresponse", "Edit", id)
		}
		return nil, err
	}

	set := patch.Set
	if len(patch.Adjust) > 0 {
		set, err = r.applyAdjustments(ctx, id, patch)
		if err != nil {
			return nil, err
		}
	}

	query, queryID, err := r.builder(TypeRiskResponse).Update(iri, set, patch.Clear)
	if err != nil {
		return nil, err
	}
	if err := r.driver.Edit(ctx, store.Request{QueryID: queryID, SPARQL: query}); err != nil {
		return nil, err
	}
	r.journal.Record(store.JournalEntry{
		Operation:  "edit",
		EntityType: TypeRiskResponse,
		EntityID:   id,
		IRI:        iri,
		QueryID:    queryID,
	})

	return r.Get(ctx, id, fields)
}

// applyAdjustments resolves relative deltas into absolute values through
// a read-modify-write: the current value is fetched, the delta applied,
// and the result merged into the patch's set map.
func (r *Resolver) applyAdjustments(ctx context.Context, id string, patch EditInput) (map[string]any, error) {
	attrs := make([]string, 0, len(patch.Adjust))
	for name := range patch.Adjust {
		attrs = append(attrs, name)
	}

	query, queryID := r.builder(TypeRiskResponse).SelectByID(id, sparql.NewFieldTree(attrs...))
	row, err := r.driver.QueryByID(ctx, store.Request{QueryID: queryID, SPARQL: query})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errors.WrapNotFound(errors.ErrEntityNotFound, "riskresponse", "Edit", id)
	}

	set := make(map[string]any, len(patch.Set)+len(patch.Adjust))
	for name, value := range patch.Set {
		set[name] = value
	}
	for name, delta := range patch.Adjust {
		set[name] = rowFloat(row, name) + delta
	}
	return set, nil
}

// validatePatch checks the patch against the attribute schema: unknown
// attributes are rejected, system-managed attributes cannot be set,
// externally mandatory attributes cannot be cleared and only scalable
// numeric attributes accept relative deltas.
func (r *Resolver) validatePatch(patch EditInput) error {
	if len(patch.Set) == 0 && len(patch.Clear) == 0 && len(patch.Adjust) == 0 {
		return errors.WrapValidation(errors.ErrEmptyInput, "riskresponse", "Edit", "patch")
	}

	attrs := r.registry.Attributes()
	for name := range patch.Set {
		def, ok := attrs.Attribute(TypeRiskResponse, name)
		if !ok {
			return errors.Validationf("riskresponse", "Edit", "unknown attribute %q", name)
		}
		if def.Mandatory == schema.MandatoryInternal {
			return errors.Validationf("riskresponse", "Edit", "attribute %q is system-managed", name)
		}
	}
	for _, name := range patch.Clear {
		def, ok := attrs.Attribute(TypeRiskResponse, name)
		if !ok {
			return errors.Validationf("riskresponse", "Edit", "unknown attribute %q", name)
		}
		if def.Mandatory == schema.MandatoryExternal {
			return errors.Validationf("riskresponse", "Edit", "attribute %q is required and cannot be cleared", name)
		}
	}
	for name := range patch.Adjust {
		def, ok := attrs.Attribute(TypeRiskResponse, name)
		if !ok {
			return errors.Validationf("riskresponse", "Edit", "unknown attribute %q", name)
		}
		if def.Type != schema.TypeNumeric || !def.Scalable {
			return errors.Validationf("riskresponse", "Edit", "attribute %q does not support relative adjustment", name)
		}
	}
	return nil
}

// Delete runs the deletion choreography: detach from the owning risk
// first, cascade-delete exclusively owned origins, then delete the
// response's own triples. Referenced objects (assets, tasks, labels) are
// never deleted; the edges pointing at them are the response's own
// triples and disappear with it. Returns the deleted identifier.
func (r *Resolver) Delete(ctx context.Context, id string, riskID string) (string, error) {
	start := time.Now()
	defer r.metrics.ObserveDuration(TypeRiskResponse, "delete", start)
	r.metrics.ObserveMutation(TypeRiskResponse, "delete")

	query, queryID := r.builder(TypeRiskResponse).SelectByID(id, nil)
	row, err := r.driver.QueryByID(ctx, store.Request{QueryID: queryID, SPARQL: query})
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", errors.WrapNotFound(errors.ErrEntityNotFound, "riskresponse", "Delete", id)
	}
	node := ReduceRiskResponse(row)

	if riskID != "" {
		riskIRI, err := r.lookupIRI(ctx, TypeRisk, riskID)
		if err != nil {
			return "", err
		}
		riskDef, _ := r.registry.Definition(TypeRisk)
		detach, detachID := r.builder(TypeRisk).DetachFrom(riskIRI, riskDef.Predicates["remediations"], node.IRI)
		if err := r.driver.Edit(ctx, store.Request{QueryID: detachID, SPARQL: detach}); err != nil {
			return "", err
		}
		r.journal.Record(store.JournalEntry{
			Operation:  "detach",
			EntityType: TypeRisk,
			EntityID:   riskID,
			IRI:        riskIRI,
			QueryID:    detachID,
		})
	}

	// Origins are exclusively owned: cascade-delete them. IRIs whose
	// discriminator does not match are skipped, never raised.
	for _, originIRI := range node.OriginIRIs {
		typeName, originID, ok := schema.ParseIRI(r.baseIRI, originIRI)
		if !ok || typeName != TypeOrigin {
			r.logger.Warn("skipping mismatched origin reference", "iri", originIRI)
			continue
		}
		del, delID := r.builder(TypeOrigin).DeleteByIRI(originIRI)
		if err := r.driver.Delete(ctx, store.Request{QueryID: delID, SPARQL: del}); err != nil {
			return "", err
		}
		r.journal.Record(store.JournalEntry{
			Operation:  "delete",
			EntityType: TypeOrigin,
			EntityID:   originID,
			IRI:        originIRI,
			QueryID:    delID,
		})
	}

	del, delID := r.builder(TypeRiskResponse).DeleteByIRI(node.IRI)
	if err := r.driver.Delete(ctx, store.Request{QueryID: delID, SPARQL: del}); err != nil {
		return "", err
	}
	r.journal.Record(store.JournalEntry{
		Operation:  "delete",
		EntityType: TypeRiskResponse,
		EntityID:   id,
		IRI:        node.IRI,
		QueryID:    delID,
	})
	r.lookups.invalidate(id)

	r.logger.Info("risk response deleted", "id", id, "origins", len(node.OriginIRIs))
	return id, nil
}

// Convert renders a response in the external interchange format.
func (r *Resolver) Convert(node *RiskResponse) (map[string]any, error) {
	return r.registry.Convert(node.Instance())
}

// create executes one insertion and journals it.
func (r *Resolver) create(ctx context.Context, typeName string, inserted *sparql.InsertResult) error {
	if err := r.driver.Create(ctx, store.Request{QueryID: inserted.QueryID, SPARQL: inserted.Query}); err != nil {
		return err
	}
	r.journal.Record(store.JournalEntry{
		Operation:  "create",
		EntityType: typeName,
		EntityID:   inserted.ID,
		IRI:        inserted.IRI,
		QueryID:    inserted.QueryID,
	})
	r.lookups.put(inserted.ID, inserted.IRI)
	return nil
}

// attach executes one attachment and journals it.
func (r *Resolver) attach(ctx context.Context, typeName, ownerIRI, predicate string, targetIRIs ...string) error {
	query, queryID := r.builder(typeName).AttachTo(ownerIRI, predicate, targetIRIs...)
	if err := r.driver.Edit(ctx, store.Request{QueryID: queryID, SPARQL: query}); err != nil {
		return err
	}
	r.journal.Record(store.JournalEntry{
		Operation:  "attach",
		EntityType: typeName,
		IRI:        ownerIRI,
		QueryID:    queryID,
	})
	return nil
}

// lookupIRI resolves a stable identifier to its IRI through an
// existence-check query. A missing entity is a validation error: callers
// use this to verify references before mutating.
func (r *Resolver) lookupIRI(ctx context.Context, typeName, id string) (string, error) {
	if iri, ok := r.lookups.get(id); ok {
		return iri, nil
	}

	query, queryID := r.builder(typeName).SelectByID(id, sparql.NewFieldTree())
	row, err := r.driver.QueryByID(ctx, store.Request{QueryID: queryID, SPARQL: query})
	if err != nil {
		return "", err
	}
	if row == nil {
		return "", errors.WrapValidation(errors.ErrReferenceNotFound, "riskresponse", "lookupIRI",
			fmt.Sprintf("%s %s", typeName, id))
	}

	iri := rowString(row, "iri")
	r.lookups.put(id, iri)
	return iri, nil
}

// materialize resolves the relationship fields present in the
// projection. Each relationship is resolved independently; IRIs whose
// discriminator does not match the expected target type are skipped.
func (r *Resolver) materialize(ctx context.Context, node *RiskResponse, fields *sparql.FieldTree) error {
	if fields.Has("origins") {
		origins, err := r.resolveOrigins(ctx, node.OriginIRIs, fields.Child("origins"))
		if err != nil {
			return err
		}
		node.Origins = origins
	}
	if fields.Has("required_assets") {
		assets, err := resolveMany(ctx, r, node.AssetIRIs, TypeAsset, fields.Child("required_assets"), ReduceAsset)
		if err != nil {
			return err
		}
		node.Assets = assets
	}
	if fields.Has("tasks") {
		tasks, err := resolveMany(ctx, r, node.TaskIRIs, TypeTask, fields.Child("tasks"), ReduceTask)
		if err != nil {
			return err
		}
		node.Tasks = tasks
	}
	if fields.Has("labels") {
		labels, err := resolveMany(ctx, r, node.LabelIRIs, TypeLabel, fields.Child("labels"), ReduceLabel)
		if err != nil {
			return err
		}
		node.Labels = labels
	}
	return nil
}

// resolveOrigins materializes origin edges, recursing into their actors
// when the projection asks for them.
func (r *Resolver) resolveOrigins(ctx context.Context, iris []string, fields *sparql.FieldTree) ([]*Origin, error) {
	origins, err := resolveMany(ctx, r, iris, TypeOrigin, fields, ReduceOrigin)
	if err != nil {
		return nil, err
	}
	if !fields.Has("origin_actors") {
		return origins, nil
	}

	for _, origin := range origins {
		actors, err := resolveMany(ctx, r, origin.ActorIRIs, TypeActor,
			fields.Child("origin_actors"), ReduceActor)
		if err != nil {
			return nil, err
		}
		origin.Actors = actors
	}
	return origins, nil
}

// resolveMany fetches a relationship's targets concurrently, preserving
// edge order. Reads are side-effect-free, so unlike mutation choreography
// they are safe to parallelize. Stale edges (missing targets, mismatched
// discriminators) are dropped, not raised.
func resolveMany[T any](ctx context.Context, r *Resolver, iris []string, typeName string, fields *sparql.FieldTree, reduce func(store.Row) *T) ([]*T, error) {
	if len(iris) == 0 {
		return nil, nil
	}

	results := make([]*T, len(iris))
	g, gctx := errgroup.WithContext(ctx)

	for i, iri := range iris {
		i, iri := i, iri
		typeTag, _, ok := schema.ParseIRI(r.baseIRI, iri)
		if !ok || typeTag != typeName {
			r.logger.Warn("skipping mismatched reference",
				"iri", iri, "expected", typeName)
			continue
		}

		g.Go(func() error {
			query, queryID := r.builder(typeName).SelectByIRI(iri, fields)
			row, err := r.driver.QueryByID(gctx, store.Request{QueryID: queryID, SPARQL: query})
			if err != nil {
				return err
			}
			if row == nil {
				return nil
			}
			if _, present := row["iri"]; !present {
				row["iri"] = iri
			}
			results[i] = reduce(row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(results))
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out, nil
}

// filterValues adapts a response record to the filter protocol.
func (r *Resolver) filterValues(node *RiskResponse) paging.ValueFunc {
	return func(key string) []string {
		switch key {
		case "id":
			return nonEmpty(node.ID)
		case "name":
			return nonEmpty(node.Name)
		case "description":
			return nonEmpty(node.Description)
		case "response_type":
			return nonEmpty(node.ResponseType)
		case "lifecycle":
			return nonEmpty(node.Lifecycle)
		case "created":
			return nonEmpty(timeKey(node.Created))
		case "modified":
			return nonEmpty(timeKey(node.Modified))
		case "labels":
			ids := make([]string, 0, len(node.LabelIRIs))
			for _, iri := range node.LabelIRIs {
				if _, id, ok := schema.ParseIRI(r.baseIRI, iri); ok {
					ids = append(ids, id)
				}
			}
			return ids
		default:
			return nil
		}
	}
}

// sortNodes orders the match set in memory.
func sortNodes(nodes []*RiskResponse, orderedBy string, mode paging.OrderMode) {
	key := func(n *RiskResponse) string {
		switch orderedBy {
		case "name":
			return n.Name
		case "response_type":
			return n.ResponseType
		case "lifecycle":
			return n.Lifecycle
		case "created":
			return timeKey(n.Created)
		case "modified":
			return timeKey(n.Modified)
		default:
			return n.ID
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		if mode == paging.OrderDesc {
			return key(nodes[i]) > key(nodes[j])
		}
		return key(nodes[i]) < key(nodes[j])
	})
}

// timeKey renders a timestamp so lexicographic order matches time order.
func timeKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// nonEmpty wraps a scalar for the filter protocol, dropping empties.
func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
