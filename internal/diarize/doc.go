// Package diarize partitions an audio timeline into speaker-labeled
// segments. The primary path shells out to an optional neural diarization
// model; when it is absent or fails, silence-based voice activity detection
// approximates speaker turns, and a single whole-track segment remains as the
// last resort so no non-silent input ever reports zero speakers.
package diarize
