package riskresponse

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/c360/stixgraph/schema"
	"github.com/c360/stixgraph/store"
)

// RiskResponse is the materialized top-level entity. Relationship edges
// arrive as IRI lists and are resolved to typed sub-records on demand,
// never eagerly.
type RiskResponse struct {
	IRI      string    `json:"iri"`
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	ResponseType string         `json:"response_type"`
	Lifecycle    string         `json:"lifecycle,omitempty"`
	Rank         float64        `json:"rank,omitempty"`
	Props        map[string]any `json:"props,omitempty"`

	OriginIRIs  []string `json:"-"`
	AssetIRIs   []string `json:"-"`
	TaskIRIs    []string `json:"-"`
	LabelIRIs   []string `json:"-"`
	MarkingIRIs []string `json:"-"`

	Origins []*Origin `json:"origins,omitempty"`
	Assets  []*Asset  `json:"required_assets,omitempty"`
	Tasks   []*Task   `json:"tasks,omitempty"`
	Labels  []*Label  `json:"labels,omitempty"`
}

// Origin characterizes who or what proposed a response.
type Origin struct {
	IRI      string    `json:"iri"`
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	Summary string `json:"origin_summary"`

	ActorIRIs []string `json:"-"`
	Actors    []*Actor `json:"origin_actors,omitempty"`
}

// Actor is one source behind an origin: a tool, party or platform.
type Actor struct {
	IRI       string `json:"iri"`
	ID        string `json:"id"`
	ActorType string `json:"actor_type"`
	ActorRef  string `json:"actor_ref"`
}

// Risk is the owning parent a response remediates.
type Risk struct {
	IRI      string    `json:"iri"`
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Statement     string     `json:"statement,omitempty"`
	RiskStatus    string     `json:"risk_status,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	FalsePositive bool       `json:"false_positive,omitempty"`
	Occurrences   float64    `json:"occurrences,omitempty"`

	RemediationIRIs []string `json:"-"`
}

// Asset is a shared subject a response requires. Never owned.
type Asset struct {
	IRI       string   `json:"iri"`
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	AssetType string   `json:"asset_type,omitempty"`
	Locations []string `json:"locations,omitempty"`
}

// Task is a scheduled activity a response references.
type Task struct {
	IRI      string         `json:"iri"`
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	TaskType string         `json:"task_type,omitempty"`
	Timing   map[string]any `json:"timing,omitempty"`
}

// Label is a shared tag.
type Label struct {
	IRI   string `json:"iri"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Marking is a data-marking definition.
type Marking struct {
	IRI            string `json:"iri"`
	ID             string `json:"id"`
	DefinitionType string `json:"definition_type"`
	Definition     string `json:"definition"`
}

// Reducer converts one raw store row into a typed record. Reducers are
// pure and tolerate partial projections: unqueried fields stay zero
// valued, never error.
type Reducer func(store.Row) any

// GetReducer returns the reducer for a type tag. Used by field
// resolution, which dispatches on the discriminator parsed out of each
// stored IRI.
func GetReducer(typeTag string) (Reducer, bool) {
	switch typeTag {
	case TypeRiskResponse:
		return func(row store.Row) any { return ReduceRiskResponse(row) }, true
	case TypeOrigin:
		return func(row store.Row) any { return ReduceOrigin(row) }, true
	case TypeActor:
		return func(row store.Row) any { return ReduceActor(row) }, true
	case TypeRisk:
		return func(row store.Row) any { return ReduceRisk(row) }, true
	case TypeAsset:
		return func(row store.Row) any { return ReduceAsset(row) }, true
	case TypeTask:
		return func(row store.Row) any { return ReduceTask(row) }, true
	case TypeLabel:
		return func(row store.Row) any { return ReduceLabel(row) }, true
	case TypeMarking:
		return func(row store.Row) any { return ReduceMarking(row) }, true
	default:
		return nil, false
	}
}

// ReduceRiskResponse materializes one response row.
func ReduceRiskResponse(row store.Row) *RiskResponse {
	return &RiskResponse{
		IRI:          rowString(row, "iri"),
		ID:           rowString(row, "id"),
		Created:      rowTime(row, "created"),
		Modified:     rowTime(row, "modified"),
		Name:         rowString(row, "name"),
		Description:  rowString(row, "description"),
		ResponseType: rowString(row, "response_type"),
		Lifecycle:    rowString(row, "lifecycle"),
		Rank:         rowFloat(row, "rank"),
		Props:        rowJSON(row, "props"),
		OriginIRIs:   rowStrings(row, "origins"),
		AssetIRIs:    rowStrings(row, "required_assets"),
		TaskIRIs:     rowStrings(row, "tasks"),
		LabelIRIs:    rowStrings(row, "labels"),
		MarkingIRIs:  rowStrings(row, "markings"),
	}
}

// ReduceOrigin materializes one origin row.
func ReduceOrigin(row store.Row) *Origin {
	return &Origin{
		IRI:       rowString(row, "iri"),
		ID:        rowString(row, "id"),
		Created:   rowTime(row, "created"),
		Modified:  rowTime(row, "modified"),
		Summary:   rowString(row, "origin_summary"),
		ActorIRIs: rowStrings(row, "origin_actors"),
	}
}

// ReduceActor materializes one actor row.
func ReduceActor(row store.Row) *Actor {
	return &Actor{
		IRI:       rowString(row, "iri"),
		ID:        rowString(row, "id"),
		ActorType: rowString(row, "actor_type"),
		ActorRef:  rowString(row, "actor_ref"),
	}
}

// ReduceRisk materializes one risk row.
func ReduceRisk(row store.Row) *Risk {
	r := &Risk{
		IRI:             rowString(row, "iri"),
		ID:              rowString(row, "id"),
		Created:         rowTime(row, "created"),
		Modified:        rowTime(row, "modified"),
		Name:            rowString(row, "name"),
		Description:     rowString(row, "description"),
		Statement:       rowString(row, "statement"),
		RiskStatus:      rowString(row, "risk_status"),
		FalsePositive:   rowBool(row, "false_positive"),
		Occurrences:     rowFloat(row, "occurrences"),
		RemediationIRIs: rowStrings(row, "remediations"),
	}
	if deadline := rowTime(row, "deadline"); !deadline.IsZero() {
		r.Deadline = &deadline
	}
	return r
}

// ReduceAsset materializes one asset row.
func ReduceAsset(row store.Row) *Asset {
	return &Asset{
		IRI:       rowString(row, "iri"),
		ID:        rowString(row, "id"),
		Name:      rowString(row, "name"),
		AssetType: rowString(row, "asset_type"),
		Locations: rowStrings(row, "locations"),
	}
}

// ReduceTask materializes one task row.
func ReduceTask(row store.Row) *Task {
	return &Task{
		IRI:      rowString(row, "iri"),
		ID:       rowString(row, "id"),
		Name:     rowString(row, "name"),
		TaskType: rowString(row, "task_type"),
		Timing:   rowJSON(row, "timing"),
	}
}

// ReduceLabel materializes one label row.
func ReduceLabel(row store.Row) *Label {
	return &Label{
		IRI:   rowString(row, "iri"),
		ID:    rowString(row, "id"),
		Name:  rowString(row, "name"),
		Color: rowString(row, "color"),
	}
}

// ReduceMarking materializes one marking row.
func ReduceMarking(row store.Row) *Marking {
	return &Marking{
		IRI:            rowString(row, "iri"),
		ID:             rowString(row, "id"),
		DefinitionType: rowString(row, "definition_type"),
		Definition:     rowString(row, "definition"),
	}
}

// Instance renders the response in the generic shape representative
// extractors and interchange converters consume.
func (r *RiskResponse) Instance() schema.Instance {
	return schema.Instance{
		IRI:  r.IRI,
		ID:   r.ID,
		Type: TypeRiskResponse,
		Values: map[string]any{
			"name":          r.Name,
			"description":   r.Description,
			"response_type": r.ResponseType,
			"lifecycle":     r.Lifecycle,
			"created":       r.Created,
			"modified":      r.Modified,
		},
	}
}

// rowString extracts a scalar string value.
func rowString(row store.Row, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// rowStrings extracts a multi-valued attribute as an ordered collection,
// normalizing the single scalar the store returns for cardinality-one
// result sets.
func rowStrings(row store.Row, key string) []string {
	switch v := row[key].(type) {
	case nil:
		return nil
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

// rowTime parses a timestamp value; zero when absent or unparseable.
func rowTime(row store.Row, key string) time.Time {
	switch v := row[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// rowBool extracts a boolean value, tolerating the store's string form.
func rowBool(row store.Row, key string) bool {
	switch v := row[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// rowFloat extracts a numeric value. JSON transport delivers numbers as
// float64; some stores answer typed literals as strings.
func rowFloat(row store.Row, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// rowJSON extracts a json-typed attribute stored as a serialized literal.
func rowJSON(row store.Row, key string) map[string]any {
	switch v := row[key].(type) {
	case map[string]any:
		return v
	case string:
		if v == "" {
			return nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err == nil {
			return out
		}
	}
	return nil
}
