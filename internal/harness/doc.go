// Package harness runs YAML fetch scenarios against a real fetcher and
// compares their traces with golden files.
//
// # Scenario Format
//
//	name: client_cache_hit
//	description: "Second client fetch is served from the store"
//	environment: client
//	types: |
//	  model: Listing: {json_key: "listing", url: "/listings/:id"}
//	fixtures:
//	  - model: Listing
//	    params: {id: 1}
//	    response: {listing: {id: 1, name: "Sunny"}}
//	steps:
//	  - fetch:
//	      listing: {model: Listing, params: {id: 1}}
//	    expect:
//	      remote_calls: 1
//	  - advance: 1m
//	    fetch:
//	      listing: {model: Listing, params: {id: 1}}
//	    expect:
//	      remote_calls: 0
//	      summaries:
//	        listing: {model: listing, id: 1}
//
// A fixture with a status instead of a response fails the request with
// that HTTP status.
//
// # Determinism
//
// Every scenario gets a fresh in-memory SQLite store, a manual clock
// starting at 2024-01-01 UTC, and fetch ids "fetch-1", "fetch-2", ...
// Keys that resolve concurrently are sorted in the trace, and background
// freshness checks finish before a step is recorded.
package harness
