// Command revoice replaces every speaker's voice in a video file. It drives
// the pipeline end to end (process), re-runs individual stages against
// existing runs (stage, resume), and inspects persisted runs and environment
// health (runs, status).
package main
