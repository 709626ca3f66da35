// Package voice clones a speaker's voice from a reference sample and
// synthesizes replacement speech. The premium path talks to an
// ElevenLabs-style HTTP provider; when no credential is configured or the
// provider fails, a local TTS engine produces standard-quality audio that
// ignores the reference timbre. Batch replacement fans segments out through a
// bounded worker pool and tolerates per-segment failures.
package voice
