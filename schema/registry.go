package schema

import (
	"fmt"

	"github.com/c360/stixgraph/errors"
)

// Instance is the generic materialized form of an entity handed to
// representative extractors and interchange converters: a mapping from
// attribute name to value, plus the identity fields every entity carries.
type Instance struct {
	IRI    string
	ID     string
	Type   string
	Values map[string]any
}

// RepresentativeFunc extracts a human-readable label from an instance.
type RepresentativeFunc func(Instance) string

// ConverterFunc converts an instance to its external interchange
// representation (STIX JSON object fields).
type ConverterFunc func(Instance) (map[string]any, error)

// ResolverFunc computes an identifier contributor from the raw input
// record. Resolvers must be pure functions of their input.
type ResolverFunc func(map[string]any) (string, error)

// TypeDefinition names an entity type and its place in the type graph.
type TypeDefinition struct {
	// ID is the internal symbolic name, e.g. "RISK_RESPONSE".
	ID string
	// Name is the public type name, e.g. "risk-response". It is also the
	// type discriminator segment carried inside every minted IRI.
	Name string
	// Category is the abstract supertype this type specializes, if any.
	Category string
	// Aliased marks types where multiple labels can resolve to one
	// identity.
	Aliased bool
}

// RelationDefinition declares one typed edge owned by or referenced from
// an entity type.
type RelationDefinition struct {
	// Name is the relationship field name, e.g. "origins".
	Name string
	// Target is the registered type name of the edge target.
	Target string
	// Predicate is the triple-store predicate storing the edge.
	Predicate string
	// Owned relationships bind the target's lifecycle to the owner: the
	// target is cascade-deleted with it. Referenced relationships are
	// only detached on owner deletion.
	Owned bool
}

// Contributor is one ordered source feeding identifier derivation.
type Contributor struct {
	// Attribute names the input attribute contributing its value.
	// Empty when Resolver is set.
	Attribute string
	// Resolver names a registered computed-field resolver.
	Resolver string
	// Required contributors missing from the input fail derivation with
	// a validation error before any store write.
	Required bool
}

// IdentifierDefinition is the ordered contributor list hashed into a
// type's deterministic identifier.
type IdentifierDefinition struct {
	Contributors []Contributor
}

// ModuleDefinition is everything one domain module declares about an
// entity type.
type ModuleDefinition struct {
	Type           TypeDefinition
	Identifier     IdentifierDefinition
	Resolvers      map[string]ResolverFunc
	Attributes     []AttributeDefinition
	Relations      []RelationDefinition
	RelationRefs   []RelationDefinition
	Representative RepresentativeFunc
	Converter      ConverterFunc

	// Predicates maps attribute names to their triple-store predicate.
	// The generic query builder works for every type through this map.
	Predicates map[string]string
}

// Registry holds all registered module definitions. It is mutable only
// between NewRegistry and Bootstrap; afterwards it is an immutable value
// passed by reference to the resolver layer.
type Registry struct {
	definitions map[string]*ModuleDefinition
	byID        map[string]string // symbolic id -> type name
	categories  map[string]bool   // abstract supertypes
	attributes  *AttributeRegistry
	frozen      bool
}

// NewRegistry creates an empty type registry with its own attribute
// registry.
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]*ModuleDefinition),
		byID:        make(map[string]string),
		categories:  make(map[string]bool),
		attributes:  NewAttributeRegistry(),
	}
}

// Attributes exposes the attribute registry for direct lookups.
func (r *Registry) Attributes() *AttributeRegistry {
	return r.attributes
}

// RegisterCategory declares an abstract supertype and the attributes every
// concrete subtype inherits from it.
func (r *Registry) RegisterCategory(name string, attrs ...AttributeDefinition) error {
	if r.frozen {
		return errors.WrapValidation(errors.ErrRegistryFrozen, "schema", "RegisterCategory", name)
	}
	if name == "" {
		return errors.Validationf("schema", "RegisterCategory", "category name is required")
	}
	if r.categories[name] {
		return errors.WrapValidation(errors.ErrDuplicateType, "schema", "RegisterCategory", name)
	}
	if _, taken := r.definitions[name]; taken {
		return errors.Validationf("schema", "RegisterCategory",
			"%s already registered as a concrete type", name)
	}
	r.categories[name] = true
	return r.attributes.RegisterAttributes(name, attrs...)
}

// RegisterDefinition stores a module definition keyed by type name.
// Structural problems fail immediately; cross-type problems (unregistered
// relation targets) are deferred to Bootstrap so registration order does
// not matter.
func (r *Registry) RegisterDefinition(def ModuleDefinition) error {
	if r.frozen {
		return errors.WrapValidation(errors.ErrRegistryFrozen, "schema", "RegisterDefinition", def.Type.Name)
	}
	if def.Type.ID == "" || def.Type.Name == "" {
		return errors.Validationf("schema", "RegisterDefinition",
			"type id and name are required (id=%q name=%q)", def.Type.ID, def.Type.Name)
	}
	if _, exists := r.definitions[def.Type.Name]; exists {
		return errors.WrapValidation(errors.ErrDuplicateType, "schema", "RegisterDefinition", def.Type.Name)
	}
	if existing, exists := r.byID[def.Type.ID]; exists {
		return errors.Validationf("schema", "RegisterDefinition",
			"type id %q already used by %q", def.Type.ID, existing)
	}
	if len(def.Identifier.Contributors) == 0 {
		return errors.Validationf("schema", "RegisterDefinition",
			"%s: identifier definition must name at least one contributor", def.Type.Name)
	}
	for i, c := range def.Identifier.Contributors {
		if c.Attribute == "" && c.Resolver == "" {
			return errors.Validationf("schema", "RegisterDefinition",
				"%s: identifier contributor %d names neither attribute nor resolver", def.Type.Name, i)
		}
		if c.Resolver != "" {
			if _, ok := def.Resolvers[c.Resolver]; !ok {
				return errors.Validationf("schema", "RegisterDefinition",
					"%s: identifier resolver %q not registered", def.Type.Name, c.Resolver)
			}
		}
	}

	if err := r.attributes.RegisterAttributes(def.Type.Name, def.Attributes...); err != nil {
		return err
	}

	stored := def
	r.definitions[def.Type.Name] = &stored
	r.byID[def.Type.ID] = def.Type.Name
	return nil
}

// Bootstrap validates the registered definitions as a whole graph and
// freezes the registry. After Bootstrap the registry never changes.
func (r *Registry) Bootstrap() error {
	if r.frozen {
		return errors.WrapValidation(errors.ErrRegistryFrozen, "schema", "Bootstrap", "registry")
	}

	for name, def := range r.definitions {
		if def.Type.Category != "" {
			if !r.categories[def.Type.Category] {
				return errors.Validationf("schema", "Bootstrap",
					"%s: category %q is not registered", name, def.Type.Category)
			}
			r.attributes.setCategory(name, def.Type.Category)
		}

		for _, rel := range def.Relations {
			if err := r.checkRelation(name, rel, "relations"); err != nil {
				return err
			}
		}
		for _, rel := range def.RelationRefs {
			if err := r.checkRelation(name, rel, "relationsRefs"); err != nil {
				return err
			}
		}
	}

	r.frozen = true
	r.attributes.freeze()
	return nil
}

// checkRelation validates one relation declaration against the whole
// registered graph.
func (r *Registry) checkRelation(owner string, rel RelationDefinition, kind string) error {
	if rel.Name == "" || rel.Target == "" || rel.Predicate == "" {
		return errors.Validationf("schema", "Bootstrap",
			"%s: %s entry needs name, target and predicate (name=%q)", owner, kind, rel.Name)
	}
	if _, ok := r.definitions[rel.Target]; !ok {
		return errors.Validationf("schema", "Bootstrap",
			"%s: %s target %q is not a registered type", owner, kind, rel.Target)
	}
	return nil
}

// Frozen reports whether Bootstrap has completed.
func (r *Registry) Frozen() bool {
	return r.frozen
}

// Definition returns the module definition for a public type name.
func (r *Registry) Definition(typeName string) (*ModuleDefinition, error) {
	def, ok := r.definitions[typeName]
	if !ok {
		return nil, errors.WrapValidation(errors.ErrUnknownType, "schema", "Definition", typeName)
	}
	return def, nil
}

// Relation finds a relation (owned or referenced) on a type by field name.
func (r *Registry) Relation(typeName, relationName string) (RelationDefinition, bool) {
	def, ok := r.definitions[typeName]
	if !ok {
		return RelationDefinition{}, false
	}
	for _, rel := range def.Relations {
		if rel.Name == relationName {
			return rel, true
		}
	}
	for _, rel := range def.RelationRefs {
		if rel.Name == relationName {
			return rel, true
		}
	}
	return RelationDefinition{}, false
}

// RepresentativeOf returns the human-readable label for an instance, or
// its identifier when the type declares no extractor.
func (r *Registry) RepresentativeOf(inst Instance) string {
	def, ok := r.definitions[inst.Type]
	if !ok || def.Representative == nil {
		return inst.ID
	}
	if label := def.Representative(inst); label != "" {
		return label
	}
	return inst.ID
}

// Convert produces the external interchange representation of an instance.
func (r *Registry) Convert(inst Instance) (map[string]any, error) {
	def, err := r.Definition(inst.Type)
	if err != nil {
		return nil, err
	}
	if def.Converter == nil {
		return nil, fmt.Errorf("schema.Convert: type %s declares no converter", inst.Type)
	}
	return def.Converter(inst)
}
