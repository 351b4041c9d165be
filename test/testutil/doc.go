// Package testutil provides shared test helpers for the polaris test suites.
//
// # Helpers
//
//   - StartEmbeddedNATS: Starts an embedded NATS server for topology testing
//   - MockFetcher: An in-memory routing.Fetcher with programmable listings
//   - TestMetricsCollector: A types.MetricsCollector that records calls for assertions
package testutil
