// Package stixgraph is a schema-driven graph entity persistence engine:
// it maps typed threat-intelligence entities, modeled after STIX, onto
// triples in a graph store and generates the queries needed to create,
// read, paginate, filter, update and delete those entities and their
// embedded sub-objects.
//
// # Architecture
//
// The engine is layered, leaves first:
//
//	┌─────────────────────────────────────┐
//	│       Resolver/Orchestrator         │  riskresponse: operation
//	│  (list, get, create, edit, delete)  │  choreography, reducers
//	└─────────────────────────────────────┘
//	           ↓ consults / builds
//	┌──────────────────┬──────────────────┐
//	│  Schema Registry │  Query Builder   │  schema: types, attributes,
//	│  (frozen at boot)│  (pure functions)│  identifiers; sparql: queries
//	└──────────────────┴──────────────────┘
//	           ↓ executes via
//	┌─────────────────────────────────────┐
//	│          Store Driver               │  store: NATS request/reply
//	│   (queryById/queryAll/mutations)    │  to the triple store service
//	└─────────────────────────────────────┘
//
// Schema knowledge lives in explicit registries populated during a
// bootstrap phase and frozen before the first request. Identifiers are
// derived deterministically from canonical attribute content, so
// semantically equal inputs always produce the same identity and
// re-imports stay idempotent. Query builders are pure: one generic
// builder serves every registered type through its predicate map.
//
// Multi-step mutations (nested creation graphs, cascading deletion) are
// sequential and never rolled back on partial failure; every committed
// step is appended to a JetStream mutation journal so partial writes are
// discoverable by reconciliation tooling.
//
// # Packages
//
// Engine:
//   - schema: attribute/type registries, identifier derivation, IRIs
//   - sparql: query builders and field-tree projection
//   - paging: cursor pagination and the filter-group protocol
//   - riskresponse: the risk remediation domain and its resolver
//
// Infrastructure:
//   - store: driver boundary, NATS driver, mutation journal
//   - natsclient: NATS connection management
//   - config: configuration loading and validation
//   - metric: Prometheus metrics
//   - errors: the validation/not-found/store error taxonomy
package stixgraph
