// Package sparql turns high-level read and mutation requests into the
// graph queries executed by the store driver. Builders are pure: they
// produce query text and never touch the store themselves.
//
// Every builder works for every registered entity type through the type's
// predicate map, so adding a type never means adding query code.
package sparql

import "sort"

// PredicateMap maps attribute names to the absolute predicate IRI used to
// store that attribute.
type PredicateMap map[string]string

// Predicate returns the predicate IRI for an attribute name.
func (pm PredicateMap) Predicate(attr string) (string, bool) {
	p, ok := pm[attr]
	return p, ok
}

// SortedAttrs returns the mapped attribute names in deterministic order,
// so generated queries are stable across runs (and assertable in tests).
func (pm PredicateMap) SortedAttrs() []string {
	attrs := make([]string, 0, len(pm))
	for attr := range pm {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	return attrs
}

// Well-known predicate IRIs shared by every entity type.
const (
	// PredID stores the stable external identifier alongside the node.
	PredID = "http://darklight.ai/ns/common#id"
	// PredCreated and PredModified are the system-managed timestamps.
	PredCreated  = "http://darklight.ai/ns/common#created"
	PredModified = "http://darklight.ai/ns/common#modified"
	// PredType is rdf:type.
	PredType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
)
