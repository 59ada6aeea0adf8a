// Package harness runs query scenarios against the engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: freshness
//	description: "tables are refetched once the ttl has passed"
//	ttl: 300s
//	collections:
//	  - resource: ec2
//	    collection: instances
//	    identifiers: [id]
//	    attributes: [state]
//	    items:
//	      - {id: i-1, state: {Name: running}}
//	steps:
//	  - query: select id from ec2_instances
//	    expect:
//	      rows: [[i-1]]
//	      fetches: {ec2_instances: 1}
//	  - advance: 100s
//	    query: select id from ec2_instances
//	    expect:
//	      fetches: {}
//
// Collections may instead come from a fixture file (fixture: path, relative
// to the scenario). Expected fetch keys name a table in the default namespace
// or "namespace.table" in any other.
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store with a fake clock that
// starts at testutil.Epoch and only moves when a step says so, and with the
// scenario name as query id. Transcripts are canonical JSON, so they compare
// byte for byte against golden files.
package harness
