// Package preflight provides readiness checks for the external tools,
// directories, and provider APIs the pipeline depends on.
//
// These checks run in two contexts:
//   - "revoice process" runs RunAll before queueing a run, so a doomed
//     environment fails in seconds instead of mid-pipeline.
//   - The CLI "revoice status" command uses individual check functions to
//     display tool and provider health.
//
// Provider checks are gated on a configured credential -- an absent key is a
// degraded mode, not a failure.
package preflight
