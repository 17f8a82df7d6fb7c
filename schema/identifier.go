package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/c360/stixgraph/errors"
)

// identifierNamespace is the fixed UUIDv5 namespace for derived entity
// identifiers. Changing it changes every derived identifier, so it is a
// constant of the wire format, not configuration.
var identifierNamespace = uuid.MustParse("00abedb4-aa42-466c-9c01-fed23315a9b7")

// DeriveID computes the deterministic identifier for an entity from the
// type's ordered contributor list and the candidate input values. Two
// derivations over identical canonical inputs always yield the same
// identifier, which is what makes re-imports idempotent.
//
// A required contributor absent from the input fails with a validation
// error before any store write is attempted.
func DeriveID(def *ModuleDefinition, input map[string]any) (string, error) {
	canonical := make([]map[string]string, 0, len(def.Identifier.Contributors))

	for _, c := range def.Identifier.Contributors {
		name, value, err := contributorValue(def, c, input)
		if err != nil {
			return "", err
		}
		if value == "" {
			if c.Required {
				return "", errors.WrapValidation(errors.ErrMissingAttribute, "schema", "DeriveID",
					fmt.Sprintf("%s identifier contributor %q", def.Type.Name, name))
			}
			continue
		}
		canonical = append(canonical, map[string]string{name: value})
	}

	if len(canonical) == 0 {
		return "", errors.WrapValidation(errors.ErrMissingAttribute, "schema", "DeriveID",
			fmt.Sprintf("%s has no identifier-contributing values", def.Type.Name))
	}

	// Ordered array of single-key objects keeps contributor order stable
	// in the hashed material.
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("schema.DeriveID: canonicalization failed: %w", err)
	}

	id := uuid.NewSHA1(identifierNamespace, data)
	return fmt.Sprintf("%s--%s", def.Type.Name, id), nil
}

// contributorValue resolves one contributor to its canonical string value.
func contributorValue(def *ModuleDefinition, c Contributor, input map[string]any) (string, string, error) {
	if c.Resolver != "" {
		fn := def.Resolvers[c.Resolver]
		value, err := fn(input)
		if err != nil {
			return c.Resolver, "", errors.WrapValidation(err, "schema", "DeriveID",
				fmt.Sprintf("%s resolver %q", def.Type.Name, c.Resolver))
		}
		return c.Resolver, value, nil
	}

	raw, ok := input[c.Attribute]
	if !ok || raw == nil {
		return c.Attribute, "", nil
	}
	return c.Attribute, canonicalString(raw), nil
}

// canonicalString renders a contributor value into its canonical textual
// form.
func canonicalString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

// NormalizeName is the standard computed-field resolver for name
// contributors: case folding plus whitespace collapse, so semantically
// equal names derive the same identifier.
func NormalizeName(input map[string]any) (string, error) {
	raw, ok := input["name"].(string)
	if !ok || raw == "" {
		return "", errors.ErrMissingAttribute
	}
	return strings.Join(strings.Fields(strings.ToLower(raw)), " "), nil
}

// MintIRI builds the store-internal node reference for an entity. The
// public identifier already carries the type discriminator segment
// ("<type>--<uuid>"), so the IRI does too: relationship edges stored as
// IRI lists stay self-describing and field resolution can dispatch on an
// explicit discriminator instead of substring sniffing.
func MintIRI(baseIRI, id string) string {
	return fmt.Sprintf("%s/%s", baseIRI, id)
}

// ParseIRI splits an entity IRI minted by MintIRI back into its type
// discriminator and stable identifier. ok is false when the IRI does not
// belong to the namespace or carries no type discriminator.
func ParseIRI(baseIRI, iri string) (typeName, id string, ok bool) {
	prefix := baseIRI + "/"
	if !strings.HasPrefix(iri, prefix) {
		return "", "", false
	}
	id = strings.TrimPrefix(iri, prefix)
	sep := strings.Index(id, "--")
	if sep <= 0 || sep == len(id)-2 {
		return "", "", false
	}
	return id[:sep], id, true
}
