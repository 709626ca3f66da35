// Package transcribe converts audio to text through a Whisper-style HTTP
// provider. Provider outages, quota errors, and exhausted retries degrade to
// a deterministic canned transcript so downstream synthesis always has
// non-empty text to work with.
package transcribe
