// Package integration contains the Integration bounded context.
// This context models the request-forwarding pipeline that accepts business
// records (anagrafiche, fatture), persists an audit copy and relays them to
// the downstream JDE system.
//
// Key concepts:
//   - IntegrationRecord: an inbound business record plus its correlation id
//   - ExecutionModes: per-dependency live/dry-run switches, resolved once
//   - OperationOutcome: the result of a single pipeline run
//   - HealthStatus: composite readiness verdict over the dependencies
//
// Design Pattern: Ports & Adapters
//   - Ports (RecordStore, DownstreamClient, Notifier) are defined here
//   - Adapters (Postgres gateway, JDE HTTP client, SMTP notifier) are in the
//     infrastructure layer
package integration
