// Package stitch reassembles a full-length audio track from a chronological
// segment list. Replacement clips are consumed per speaker in FIFO order;
// slots without a pending clip fall back to slices of the original audio.
// The final track is a lossless concatenation of exactly one chunk per
// segment.
package stitch
