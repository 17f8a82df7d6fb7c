package sparql

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/c360/stixgraph/errors"
	"github.com/c360/stixgraph/schema"
)

// Builder generates the queries for one entity type, bound to that type's
// predicate map at construction.
type Builder struct {
	def        *schema.ModuleDefinition
	baseIRI    string
	typeIRI    string
	predicates PredicateMap
}

// InsertResult is the output of an insert build: the minted node
// reference, the stable identifier and the self-contained creation query.
type InsertResult struct {
	IRI     string
	ID      string
	Query   string
	QueryID string
}

// NewBuilder creates a query builder for a registered type.
func NewBuilder(baseIRI string, def *schema.ModuleDefinition) *Builder {
	return &Builder{
		def:        def,
		baseIRI:    baseIRI,
		typeIRI:    fmt.Sprintf("%s#%s", baseIRI, def.Type.ID),
		predicates: PredicateMap(def.Predicates),
	}
}

// TypeName returns the public name of the type this builder serves.
func (b *Builder) TypeName() string {
	return b.def.Type.Name
}

// queryID builds the stable query identifier passed to the store driver.
func (b *Builder) queryID(op string) string {
	return fmt.Sprintf("%s-%s", op, b.def.Type.Name)
}

// projectedAttrs returns the attribute names to fetch for a field tree,
// restricted to attributes the predicate map knows. A nil tree projects
// every mapped attribute.
func (b *Builder) projectedAttrs(fields *FieldTree) []string {
	all := b.predicates.SortedAttrs()
	if fields == nil {
		return all
	}
	out := make([]string, 0, len(all))
	for _, attr := range all {
		if fields.Has(attr) {
			out = append(out, attr)
		}
	}
	return out
}

// SelectByID builds a single-entity read query scoped to the requested
// fields. Unrequested predicates never appear in the query, so
// unrequested relationships are never fetched.
func (b *Builder) SelectByID(id string, fields *FieldTree) (string, string) {
	attrs := b.projectedAttrs(fields)

	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT ?iri ?id")
	for _, attr := range attrs {
		fmt.Fprintf(&sb, " ?%s", attr)
	}
	sb.WriteString("\nWHERE {\n")
	fmt.Fprintf(&sb, "  ?iri a <%s> ;\n", b.typeIRI)
	fmt.Fprintf(&sb, "       <%s> ?id .\n", PredID)
	fmt.Fprintf(&sb, "  FILTER(?id = %s)\n", formatString(id))
	b.writeOptionalPatterns(&sb, attrs)
	sb.WriteString("}")

	return sb.String(), b.queryID("select-by-id")
}

// SelectByIRI builds a read query addressing the node reference directly.
// Used when resolving relationship edges stored as IRI lists.
func (b *Builder) SelectByIRI(iri string, fields *FieldTree) (string, string) {
	attrs := b.projectedAttrs(fields)

	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT ?id")
	for _, attr := range attrs {
		fmt.Fprintf(&sb, " ?%s", attr)
	}
	sb.WriteString("\nWHERE {\n")
	fmt.Fprintf(&sb, "  <%s> a <%s> ;\n", iri, b.typeIRI)
	fmt.Fprintf(&sb, "       <%s> ?id .\n", PredID)
	for _, attr := range attrs {
		fmt.Fprintf(&sb, "  OPTIONAL { <%s> <%s> ?%s . }\n", iri, b.predicates[attr], attr)
	}
	sb.WriteString("}")

	return sb.String(), b.queryID("select-by-iri")
}

// SelectAll builds the list query for the type. Ordering, offsets and
// filter keys the store cannot push down are applied post-fetch by the
// orchestration layer, so the list query fetches the full projected match
// set.
func (b *Builder) SelectAll(fields *FieldTree) (string, string) {
	attrs := b.projectedAttrs(fields)

	var sb strings.Builder
	sb.WriteString("SELECT DISTINCT ?iri ?id")
	for _, attr := range attrs {
		fmt.Fprintf(&sb, " ?%s", attr)
	}
	sb.WriteString("\nWHERE {\n")
	fmt.Fprintf(&sb, "  ?iri a <%s> ;\n", b.typeIRI)
	fmt.Fprintf(&sb, "       <%s> ?id .\n", PredID)
	b.writeOptionalPatterns(&sb, attrs)
	sb.WriteString("}")

	return sb.String(), b.queryID("select-all")
}

// writeOptionalPatterns emits one OPTIONAL block per projected attribute.
func (b *Builder) writeOptionalPatterns(sb *strings.Builder, attrs []string) {
	for _, attr := range attrs {
		fmt.Fprintf(sb, "  OPTIONAL { ?iri <%s> ?%s . }\n", b.predicates[attr], attr)
	}
}

// Insert derives the entity's identifier, mints its IRI and builds a
// self-contained creation query for the entity's direct attributes only.
// Relationship triples are never inlined here: targets may not exist yet
// when the owning entity is created, so attachment is always a separate
// query.
func (b *Builder) Insert(input map[string]any) (*InsertResult, error) {
	input = schema.CleanInput(input)
	if input == nil {
		return nil, errors.WrapValidation(errors.ErrEmptyInput, "sparql", "Insert", b.def.Type.Name)
	}

	id, err := schema.DeriveID(b.def, input)
	if err != nil {
		return nil, err
	}
	iri := schema.MintIRI(b.baseIRI, id)
	now := time.Now().UTC()

	var sb strings.Builder
	sb.WriteString("INSERT DATA {\n")
	fmt.Fprintf(&sb, "  <%s> a <%s> ;\n", iri, b.typeIRI)
	fmt.Fprintf(&sb, "       <%s> %s ;\n", PredID, formatString(id))
	fmt.Fprintf(&sb, "       <%s> %s ;\n", PredCreated, formatDateTime(now))
	fmt.Fprintf(&sb, "       <%s> %s", PredModified, formatDateTime(now))

	for _, attr := range b.predicates.SortedAttrs() {
		value, ok := input[attr]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, " ;\n       <%s> %s", b.predicates[attr], formatValue(value))
	}
	sb.WriteString(" .\n}")

	return &InsertResult{
		IRI:     iri,
		ID:      id,
		Query:   sb.String(),
		QueryID: b.queryID("insert"),
	}, nil
}

// AttachTo builds the query attaching targets to an owner through a
// relationship predicate. Asserting a triple that already exists is a
// no-op in the store, which is what makes attachment idempotent.
func (b *Builder) AttachTo(ownerIRI, predicate string, targetIRIs ...string) (string, string) {
	var sb strings.Builder
	sb.WriteString("INSERT DATA {\n")
	fmt.Fprintf(&sb, "  <%s> <%s> %s .\n", ownerIRI, predicate, iriList(targetIRIs))
	sb.WriteString("}")
	return sb.String(), b.queryID("attach")
}

// DetachFrom builds the query removing the edge triples between an owner
// and targets. Removing an absent triple is a no-op, not an error.
func (b *Builder) DetachFrom(ownerIRI, predicate string, targetIRIs ...string) (string, string) {
	var sb strings.Builder
	sb.WriteString("DELETE DATA {\n")
	fmt.Fprintf(&sb, "  <%s> <%s> %s .\n", ownerIRI, predicate, iriList(targetIRIs))
	sb.WriteString("}")
	return sb.String(), b.queryID("detach")
}

// Update builds a generic partial update from a sparse patch: each set
// field replaces its previous value, each cleared field is removed. The
// modified timestamp is always refreshed. The predicate map makes this
// one function serve every type.
func (b *Builder) Update(iri string, set map[string]any, clear []string) (string, string, error) {
	set = schema.CleanInput(set)
	if set == nil && len(clear) == 0 {
		return "", "", errors.WrapValidation(errors.ErrEmptyInput, "sparql", "Update", b.def.Type.Name)
	}

	var stmts []string
	for _, attr := range b.predicates.SortedAttrs() {
		value, ok := set[attr]
		if !ok {
			continue
		}
		stmts = append(stmts, replaceStatement(iri, b.predicates[attr], formatValue(value)))
	}
	for _, attr := range clear {
		pred, ok := b.predicates.Predicate(attr)
		if !ok {
			return "", "", errors.Validationf("sparql", "Update",
				"%s: unknown attribute %q in clear list", b.def.Type.Name, attr)
		}
		stmts = append(stmts, fmt.Sprintf("DELETE WHERE { <%s> <%s> ?old . }", iri, pred))
	}
	stmts = append(stmts, replaceStatement(iri, PredModified, formatDateTime(time.Now().UTC())))

	return strings.Join(stmts, " ;\n"), b.queryID("update"), nil
}

// replaceStatement builds one DELETE/INSERT pair replacing a predicate's
// value.
func replaceStatement(iri, predicate, value string) string {
	return fmt.Sprintf(
		"DELETE { <%s> <%s> ?old . } INSERT { <%s> <%s> %s . } WHERE { OPTIONAL { <%s> <%s> ?old . } }",
		iri, predicate, iri, predicate, value, iri, predicate)
}

// DeleteByIRI builds the query removing the entity's own triples only.
// Cascading deletion of owned sub-objects is an orchestration decision,
// never a query-builder concern: owned-versus-referenced semantics differ
// per relationship and must be decided by the caller.
func (b *Builder) DeleteByIRI(iri string) (string, string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DELETE WHERE { <%s> ?p ?o . }", iri)
	return sb.String(), b.queryID("delete")
}

// iriList renders target IRIs as a comma-separated object list.
func iriList(iris []string) string {
	wrapped := make([]string, 0, len(iris))
	for _, iri := range iris {
		wrapped = append(wrapped, "<"+iri+">")
	}
	return strings.Join(wrapped, ", ")
}

// formatValue renders a Go value as a query literal.
func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return formatString(t)
	case bool:
		return fmt.Sprintf("%t", t)
	case int, int32, int64:
		return fmt.Sprintf("%d", t)
	case float32, float64:
		return fmt.Sprintf("%v", t)
	case time.Time:
		return formatDateTime(t)
	case []string:
		parts := make([]string, 0, len(t))
		for _, s := range t {
			parts = append(parts, formatString(s))
		}
		return strings.Join(parts, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return formatString(fmt.Sprintf("%v", t))
		}
		return formatString(string(data))
	}
}

// formatString renders an escaped string literal.
func formatString(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return `"` + replacer.Replace(s) + `"`
}

// formatDateTime renders an xsd:dateTime literal.
func formatDateTime(t time.Time) string {
	return fmt.Sprintf(`"%s"^^<http://www.w3.org/2001/XMLSchema#dateTime>`,
		t.UTC().Format(time.RFC3339))
}
