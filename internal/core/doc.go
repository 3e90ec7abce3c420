// Package core provides the business logic around candidate exports.
//
// It wraps the export pipeline with everything a long-running service needs,
// independent of any transport layer. It can be used by the web handlers,
// CLI tools, or tests without modification.
//
// # Service
//
// [Service.Export] validates a request (mode, format, columns or preset),
// waits for a slot on the [ExportLimiter], runs the pipeline under a run
// timeout, and returns the CSV file:
//
//	out, err := svc.Export(ctx, core.ExportRequest{
//	    Filter:  export.FilterCriteria{JapaneseLevels: []string{"N3"}},
//	    Columns: []string{"unique_code", "full_name", "skills"},
//	})
//
// Every run gets a uuid, a logger carrying that id, and Prometheus metrics.
//
// # History
//
// When a database is configured, each run is recorded in the export_runs
// table by [HistoryStore]. [Service.StartHistoryPurge] deletes old rows on a
// schedule. Without a database, history is disabled and the rest of the
// service works unchanged.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code for support reference:
//
//   - EXP001-EXP004: Export outcomes (empty result, collection, serialization, busy)
//   - COL001-COL002: Column selection errors
//   - UPS001-UPS004: Recruitment API failures
//   - FMT, PRE, REQ: Request validation, presets, cancellation and timeouts
package core
