// Package ffmpeg wraps the ffmpeg binary behind a single Tool adapter:
// audio extraction, timestamp slicing, silence detection, lossless
// concatenation, and audio/video remuxing. All pipeline stages that touch
// binary media go through this adapter, which keeps subprocess handling and
// error classification in one place and makes every caller testable with an
// injected runner.
package ffmpeg
