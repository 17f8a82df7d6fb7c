// Package schema holds the engine's static knowledge of the domain: which
// entity types exist, which attributes and relationships each type carries,
// and how a type's stable identifier is derived from its content.
//
// Both registries are populated during an explicit bootstrap phase and
// frozen before the first request is served. Registration errors are boot
// errors: schema drift must be caught at process start, never discovered
// from a bad query at runtime.
package schema

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/stixgraph/errors"
)

// AttributeType enumerates the value types an attribute may hold.
type AttributeType string

// Attribute value types.
const (
	TypeString     AttributeType = "string"
	TypeDate       AttributeType = "date"
	TypeNumeric    AttributeType = "numeric"
	TypeBoolean    AttributeType = "boolean"
	TypeDictionary AttributeType = "dictionary"
	TypeJSON       AttributeType = "json"
	TypeObject     AttributeType = "object"
)

// MandatoryType describes who, if anyone, must supply an attribute.
type MandatoryType string

// Mandatory classes.
const (
	// MandatoryInternal attributes are system-managed and never accepted
	// from external input.
	MandatoryInternal MandatoryType = "internal"
	// MandatoryExternal attributes must be present on external input.
	MandatoryExternal MandatoryType = "external"
	// MandatoryCustomizable attributes are required or not by policy.
	MandatoryCustomizable MandatoryType = "customizable"
	// MandatoryNo attributes are optional.
	MandatoryNo MandatoryType = "no"
)

// AttributeDefinition declares one typed attribute of an entity type.
type AttributeDefinition struct {
	Name        string
	Type        AttributeType
	Mandatory   MandatoryType
	EditDefault bool
	Multiple    bool
	Upsert      bool
	Label       string
	Description string

	// Scalable marks numeric attributes that support relative
	// increase/decrease semantics on update.
	Scalable bool

	// JSONSchema optionally constrains json-typed values. Validated with
	// gojsonschema before any write.
	JSONSchema string

	// Attributes describes the nested shape of object-typed values.
	Attributes []AttributeDefinition
}

// AttributeRegistry declares, per entity type, the set of typed attributes.
// Attributes registered on an abstract category apply to every concrete
// type declaring that category.
type AttributeRegistry struct {
	attributes map[string][]AttributeDefinition
	categories map[string]string // concrete type -> category
	frozen     bool
}

// NewAttributeRegistry creates an empty attribute registry.
func NewAttributeRegistry() *AttributeRegistry {
	return &AttributeRegistry{
		attributes: make(map[string][]AttributeDefinition),
		categories: make(map[string]string),
	}
}

// RegisterAttributes appends definitions for a type. Registration merges:
// later calls add new attributes, but re-registering an attribute name
// already present on the type is a boot error, never a silent overwrite.
func (r *AttributeRegistry) RegisterAttributes(typeName string, defs ...AttributeDefinition) error {
	if r.frozen {
		return errors.WrapValidation(errors.ErrRegistryFrozen, "schema", "RegisterAttributes", typeName)
	}
	if typeName == "" {
		return errors.Validationf("schema", "RegisterAttributes", "type name is required")
	}

	existing := r.attributes[typeName]
	seen := make(map[string]bool, len(existing))
	for _, def := range existing {
		seen[def.Name] = true
	}

	for _, def := range defs {
		if def.Name == "" {
			return errors.Validationf("schema", "RegisterAttributes",
				"%s: attribute with empty name", typeName)
		}
		if seen[def.Name] {
			return errors.WrapValidation(errors.ErrDuplicateAttr, "schema", "RegisterAttributes",
				fmt.Sprintf("%s.%s", typeName, def.Name))
		}
		if err := validateDefinition(typeName, def); err != nil {
			return err
		}
		seen[def.Name] = true
		existing = append(existing, def)
	}

	r.attributes[typeName] = existing
	return nil
}

// validateDefinition checks a single attribute definition for internal
// consistency at registration time.
func validateDefinition(typeName string, def AttributeDefinition) error {
	switch def.Type {
	case TypeString, TypeDate, TypeNumeric, TypeBoolean, TypeDictionary, TypeJSON, TypeObject:
	default:
		return errors.Validationf("schema", "RegisterAttributes",
			"%s.%s: unknown attribute type %q", typeName, def.Name, def.Type)
	}
	if def.Scalable && def.Type != TypeNumeric {
		return errors.Validationf("schema", "RegisterAttributes",
			"%s.%s: scalable requires numeric type", typeName, def.Name)
	}
	if def.Type == TypeObject && len(def.Attributes) == 0 {
		return errors.Validationf("schema", "RegisterAttributes",
			"%s.%s: object type requires nested attributes", typeName, def.Name)
	}
	if def.JSONSchema != "" {
		if def.Type != TypeJSON {
			return errors.Validationf("schema", "RegisterAttributes",
				"%s.%s: json schema only applies to json-typed attributes", typeName, def.Name)
		}
		loader := gojsonschema.NewStringLoader(def.JSONSchema)
		if _, err := gojsonschema.NewSchema(loader); err != nil {
			return errors.Validationf("schema", "RegisterAttributes",
				"%s.%s: invalid json schema: %v", typeName, def.Name, err)
		}
	}
	return nil
}

// setCategory records the abstract category of a concrete type. Called by
// the type registry during bootstrap.
func (r *AttributeRegistry) setCategory(typeName, category string) {
	r.categories[typeName] = category
}

// Attributes returns the declared attribute set for a type, category
// attributes first, in registration order.
func (r *AttributeRegistry) Attributes(typeName string) []AttributeDefinition {
	var out []AttributeDefinition
	if category := r.categories[typeName]; category != "" {
		out = append(out, r.attributes[category]...)
	}
	out = append(out, r.attributes[typeName]...)
	return out
}

// Attribute returns a single attribute definition by name, searching the
// type's own attributes before its category's.
func (r *AttributeRegistry) Attribute(typeName, attrName string) (AttributeDefinition, bool) {
	for _, def := range r.attributes[typeName] {
		if def.Name == attrName {
			return def, true
		}
	}
	if category := r.categories[typeName]; category != "" {
		for _, def := range r.attributes[category] {
			if def.Name == attrName {
				return def, true
			}
		}
	}
	return AttributeDefinition{}, false
}

// freeze marks the registry read-only.
func (r *AttributeRegistry) freeze() {
	r.frozen = true
}

// ValidateInput checks externally supplied values against the declared
// attribute set for a type. It runs strictly before any store write.
func (r *AttributeRegistry) ValidateInput(typeName string, input map[string]any) error {
	defs := r.Attributes(typeName)
	byName := make(map[string]AttributeDefinition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	// Mandatory external attributes absent from input fail validation.
	for _, def := range defs {
		if def.Mandatory != MandatoryExternal {
			continue
		}
		if v, ok := input[def.Name]; !ok || isEmptyValue(v) {
			return errors.WrapValidation(errors.ErrMissingAttribute, "schema", "ValidateInput",
				fmt.Sprintf("%s.%s", typeName, def.Name))
		}
	}

	for name, value := range input {
		def, ok := byName[name]
		if !ok {
			// Relationship inputs are validated by the orchestrator, not
			// the attribute registry.
			continue
		}
		if def.Mandatory == MandatoryInternal {
			return errors.Validationf("schema", "ValidateInput",
				"%s.%s is system-managed and cannot be supplied", typeName, name)
		}
		if !def.Multiple {
			if _, isSlice := value.([]any); isSlice {
				return errors.Validationf("schema", "ValidateInput",
					"%s.%s is single-valued but a collection was supplied", typeName, name)
			}
		}
		if def.Type == TypeJSON && def.JSONSchema != "" {
			result, err := gojsonschema.Validate(
				gojsonschema.NewStringLoader(def.JSONSchema),
				gojsonschema.NewGoLoader(value),
			)
			if err != nil {
				return errors.Validationf("schema", "ValidateInput",
					"%s.%s: schema validation error: %v", typeName, name, err)
			}
			if !result.Valid() {
				return errors.Validationf("schema", "ValidateInput",
					"%s.%s: %s", typeName, name, result.Errors()[0].String())
			}
		}
	}

	return nil
}

// CleanInput returns a copy of input with empty and nil values removed.
// Absence must be indistinguishable from "not supplied": an empty value is
// never written as an empty triple. The operation is idempotent.
func CleanInput(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for name, value := range input {
		if isEmptyValue(value) {
			continue
		}
		out[name] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// isEmptyValue reports whether a supplied value carries no content.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// SortedTypeNames returns all type names with registered attributes,
// sorted for deterministic boot-time reporting.
func (r *AttributeRegistry) SortedTypeNames() []string {
	names := make([]string, 0, len(r.attributes))
	for name := range r.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
