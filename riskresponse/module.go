// Package riskresponse implements the risk remediation domain: responses
// to identified risks, the origins that characterize who proposed a
// response, the actors behind those origins, and the shared objects a
// response references (assets, tasks, labels, markings).
//
// The package registers its entity types with the schema registry at
// bootstrap and exposes a resolver that orchestrates query building,
// store execution and row reduction for each operation.
package riskresponse

import (
	"fmt"
	"strings"

	"github.com/c360/stixgraph/schema"
)

// Public type names. The name is also the discriminator segment carried
// in every identifier and IRI of that type.
const (
	TypeRiskResponse = "risk-response"
	TypeOrigin       = "origin"
	TypeActor        = "actor"
	TypeRisk         = "risk"
	TypeAsset        = "asset"
	TypeTask         = "task"
	TypeLabel        = "label"
	TypeMarking      = "marking"
)

// CategoryCoreObject is the abstract supertype for top-level domain
// objects. Attributes registered on it apply to every concrete subtype.
const CategoryCoreObject = "core-object"

const (
	nsCyio   = "http://darklight.ai/ns/cyio#"
	nsOscal  = "http://darklight.ai/ns/oscal#"
	nsCommon = "http://darklight.ai/ns/common#"
)

// RegisterAll registers the domain's category and every entity type with
// the registry. Bootstrap remains the caller's responsibility so other
// domain packages can register before the registry freezes.
func RegisterAll(reg *schema.Registry) error {
	if err := reg.RegisterCategory(CategoryCoreObject,
		schema.AttributeDefinition{Name: "name", Type: schema.TypeString, Mandatory: schema.MandatoryExternal, EditDefault: true},
		schema.AttributeDefinition{Name: "description", Type: schema.TypeString, Mandatory: schema.MandatoryNo, EditDefault: true, Upsert: true},
	); err != nil {
		return err
	}

	for _, def := range []schema.ModuleDefinition{
		riskResponseDefinition(),
		originDefinition(),
		actorDefinition(),
		riskDefinition(),
		assetDefinition(),
		taskDefinition(),
		labelDefinition(),
		markingDefinition(),
	} {
		if err := reg.RegisterDefinition(def); err != nil {
			return err
		}
	}
	return nil
}

func riskResponseDefinition() schema.ModuleDefinition {
	return schema.ModuleDefinition{
		Type: schema.TypeDefinition{
			ID:       "RISK_RESPONSE",
			Name:     TypeRiskResponse,
			Category: CategoryCoreObject,
		},
		Identifier: schema.IdentifierDefinition{
			Contributors: []schema.Contributor{
				{Resolver: "normalized-name", Required: true},
				{Attribute: "created"},
			},
		},
		Resolvers: map[string]schema.ResolverFunc{
			"normalized-name": schema.NormalizeName,
		},
		Attributes: []schema.AttributeDefinition{
			{Name: "response_type", Type: schema.TypeString, Mandatory: schema.MandatoryExternal, EditDefault: true,
				Label: "Response Type", Description: "avoid, mitigate, transfer or accept"},
			{Name: "lifecycle", Type: schema.TypeString, Mandatory: schema.MandatoryNo, EditDefault: true, Upsert: true},
			{Name: "rank", Type: schema.TypeNumeric, Mandatory: schema.MandatoryNo, Scalable: true,
				Description: "relative remediation priority"},
			{Name: "props", Type: schema.TypeJSON, Mandatory: schema.MandatoryNo,
				JSONSchema: `{"type":"object"}`},
		},
		Relations: []schema.RelationDefinition{
			{Name: "origins", Target: TypeOrigin, Predicate: nsOscal + "origins", Owned: true},
		},
		RelationRefs: []schema.RelationDefinition{
			{Name: "required_assets", Target: TypeAsset, Predicate: nsOscal + "required_assets"},
			{Name: "tasks", Target: TypeTask, Predicate: nsOscal + "tasks"},
			{Name: "labels", Target: TypeLabel, Predicate: nsCommon + "labels"},
			{Name: "markings", Target: TypeMarking, Predicate: nsCommon + "object_markings"},
		},
		Representative: func(inst schema.Instance) string {
			name, _ := inst.Values["name"].(string)
			return name
		},
		Converter: convertRiskResponse,
		Predicates: map[string]string{
			"name":            nsCyio + "name",
			"description":     nsCyio + "description",
			"response_type":   nsOscal + "response_type",
			"lifecycle":       nsOscal + "lifecycle",
			"rank":            nsOscal + "rank",
			"props":           nsCyio + "props",
			"origins":         nsOscal + "origins",
			"required_assets": nsOscal + "required_assets",
			"tasks":           nsOscal + "tasks",
			"labels":          nsCommon + "labels",
			"markings":        nsCommon + "object_markings",
		},
	}
}

func originDefinition() schema.ModuleDefinition {
	return schema.ModuleDefinition{
		Type: schema.TypeDefinition{ID: "ORIGIN", Name: TypeOrigin},
		Identifier: schema.IdentifierDefinition{
			// Origins have no natural name: identity comes from their actor
			// composition, summarized by the origin_of reference supplied at
			// creation plus the creation timestamp.
			Contributors: []schema.Contributor{
				{Resolver: "actor-summary", Required: true},
				{Attribute: "created"},
			},
		},
		Resolvers: map[string]schema.ResolverFunc{
			"actor-summary": originActorSummary,
		},
		Attributes: []schema.AttributeDefinition{
			{Name: "origin_summary", Type: schema.TypeString, Mandatory: schema.MandatoryExternal},
		},
		Relations: []schema.RelationDefinition{
			// Actors are shared identities: attached to origins, never
			// cascade-deleted with them.
			{Name: "origin_actors", Target: TypeActor, Predicate: nsOscal + "origin_actors"},
		},
		Predicates: map[string]string{
			"origin_summary": nsOscal + "origin_summary",
			"origin_actors":  nsOscal + "origin_actors",
		},
	}
}

// originActorSummary derives the origin's identifying value from the
// summary attribute the resolver synthesizes out of the embedded actor
// references.
func originActorSummary(input map[string]any) (string, error) {
	summary, _ := input["origin_summary"].(string)
	if summary == "" {
		return "", fmt.Errorf("origin_summary is required")
	}
	return strings.ToLower(summary), nil
}

func actorDefinition() schema.ModuleDefinition {
	return schema.ModuleDefinition{
		Type: schema.TypeDefinition{ID: "ACTOR", Name: TypeActor},
		Identifier: schema.IdentifierDefinition{
			Contributors: []schema.Contributor{
				{Attribute: "actor_type", Required: true},
				{Attribute: "actor_ref", Required: true},
			},
		},
		Attributes: []schema.AttributeDefinition{
			{Name: "actor_type", Type: schema.TypeString, Mandatory: schema.MandatoryExternal,
				Description: "tool, party or assessment-platform"},
			{Name: "actor_ref", Type: schema.TypeString, Mandatory: schema.MandatoryExternal},
		},
		Predicates: map[string]string{
			"actor_type": nsOscal + "actor_type",
			"actor_ref":  nsOscal + "actor_ref",
		},
	}
}

func riskDefinition() schema.ModuleDefinition {
	return schema.ModuleDefinition{
		Type: schema.TypeDefinition{
			ID:       "RISK",
			Name:     TypeRisk,
			Category: CategoryCoreObject,
		},
		Identifier: schema.IdentifierDefinition{
			Contributors: []schema.Contributor{
				{Resolver: "normalized-name", Required: true},
			},
		},
		Resolvers: map[string]schema.ResolverFunc{
			"normalized-name": schema.NormalizeName,
		},
		Attributes: []schema.AttributeDefinition{
			{Name: "statement", Type: schema.TypeString, Mandatory: schema.MandatoryNo},
			{Name: "risk_status", Type: schema.TypeString, Mandatory: schema.MandatoryNo, EditDefault: true},
			{Name: "deadline", Type: schema.TypeDate, Mandatory: schema.MandatoryNo},
			{Name: "false_positive", Type: schema.TypeBoolean, Mandatory: schema.MandatoryNo},
			{Name: "occurrences", Type: schema.TypeNumeric, Mandatory: schema.MandatoryNo, Scalable: true},
		},
		Relations: []schema.RelationDefinition{
			// Remediations are owned edges from the risk's perspective, but
			// responses outlive their attachment: deleting a risk detaches
			// them, deleting a response detaches it here first.
			{Name: "remediations", Target: TypeRiskResponse, Predicate: nsOscal + "remediations"},
		},
		Representative: func(inst schema.Instance) string {
			name, _ := inst.Values["name"].(string)
			return name
		},
		Converter: convertRisk,
		Predicates: map[string]string{
			"name":           nsCyio + "name",
			"description":    nsCyio + "description",
			"statement":      nsOscal + "statement",
			"risk_status":    nsOscal + "risk_status",
			"deadline":       nsOscal + "deadline",
			"false_positive": nsOscal + "false_positive",
			"occurrences":    nsOscal + "occurrences",
			"remediations":   nsOscal + "remediations",
		},
	}
}

func assetDefinition() schema.ModuleDefinition {
	return schema.ModuleDefinition{
		Type: schema.TypeDefinition{
			ID:       "ASSET",
			Name:     TypeAsset,
			Category: CategoryCoreObject,
		},
		Identifier: schema.IdentifierDefinition{
			Contributors: []schema.Contributor{
				{Resolver: "normalized-name", Required: true},
			},
		},
		Resolvers: map[string]schema.ResolverFunc{
			"normalized-name": schema.NormalizeName,
		},
		Attributes: []schema.AttributeDefinition{
			{Name: "asset_type", Type: schema.TypeString, Mandatory: schema.MandatoryNo},
			{Name: "locations", Type: schema.TypeString, Mandatory: schema.MandatoryNo, Multiple: true},
		},
		Predicates: map[string]string{
			"name":        nsCyio + "name",
			"description": nsCyio + "description",
			"asset_type":  nsOscal + "asset_type",
			"locations":   nsOscal + "locations",
		},
	}
}

func taskDefinition() schema.ModuleDefinition {
	return schema.ModuleDefinition{
		Type: schema.TypeDefinition{
			ID:       "TASK",
			Name:     TypeTask,
			Category: CategoryCoreObject,
		},
		Identifier: schema.IdentifierDefinition{
			Contributors: []schema.Contributor{
				{Resolver: "normalized-name", Required: true},
				{Attribute: "task_type"},
			},
		},
		Resolvers: map[string]schema.ResolverFunc{
			"normalized-name": schema.NormalizeName,
		},
		Attributes: []schema.AttributeDefinition{
			{Name: "task_type", Type: schema.TypeString, Mandatory: schema.MandatoryNo},
			{Name: "timing", Type: schema.TypeDictionary, Mandatory: schema.MandatoryNo},
		},
		Predicates: map[string]string{
			"name":        nsCyio + "name",
			"description": nsCyio + "description",
			"task_type":   nsOscal + "task_type",
			"timing":      nsOscal + "timing",
		},
	}
}

func labelDefinition() schema.ModuleDefinition {
	return schema.ModuleDefinition{
		Type: schema.TypeDefinition{ID: "LABEL", Name: TypeLabel, Aliased: true},
		Identifier: schema.IdentifierDefinition{
			Contributors: []schema.Contributor{
				{Resolver: "normalized-name", Required: true},
			},
		},
		Resolvers: map[string]schema.ResolverFunc{
			"normalized-name": schema.NormalizeName,
		},
		Attributes: []schema.AttributeDefinition{
			{Name: "name", Type: schema.TypeString, Mandatory: schema.MandatoryExternal},
			{Name: "color", Type: schema.TypeString, Mandatory: schema.MandatoryNo},
		},
		Representative: func(inst schema.Instance) string {
			name, _ := inst.Values["name"].(string)
			return name
		},
		Predicates: map[string]string{
			"name":  nsCyio + "name",
			"color": nsCyio + "color",
		},
	}
}

func markingDefinition() schema.ModuleDefinition {
	return schema.ModuleDefinition{
		Type: schema.TypeDefinition{ID: "MARKING", Name: TypeMarking},
		Identifier: schema.IdentifierDefinition{
			Contributors: []schema.Contributor{
				{Attribute: "definition_type", Required: true},
				{Attribute: "definition", Required: true},
			},
		},
		Attributes: []schema.AttributeDefinition{
			{Name: "definition_type", Type: schema.TypeString, Mandatory: schema.MandatoryExternal},
			{Name: "definition", Type: schema.TypeString, Mandatory: schema.MandatoryExternal},
		},
		Representative: func(inst schema.Instance) string {
			def, _ := inst.Values["definition"].(string)
			return def
		},
		Predicates: map[string]string{
			"definition_type": nsCommon + "definition_type",
			"definition":      nsCommon + "definition",
		},
	}
}
