// Package pipeline sequences the voice replacement stages: audio extraction,
// diarization, transcription, per-speaker synthesis, stitching, and muxing.
// Run state persists through the runs store after every transition, so each
// stage can also be invoked standalone against an existing run. Retry and
// fallback policy lives at the stage boundaries: transient provider errors
// are retried, exhausted retries degrade where a fallback exists, and only
// unrecoverable input or tooling problems fail the run.
package pipeline
