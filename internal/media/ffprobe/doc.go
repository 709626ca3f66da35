// Package ffprobe wraps the ffprobe binary for media container inspection:
// stream inventory, durations, sample rates, and sizes, parsed from its JSON
// output mode.
package ffprobe
