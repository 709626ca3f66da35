// Package runs persists pipeline run state and artifacts in SQLite. The
// store is an explicit dependency injected into the orchestrator so multiple
// instances and tests never share hidden global state. Reads return value
// snapshots; writers go through Update.
package runs
