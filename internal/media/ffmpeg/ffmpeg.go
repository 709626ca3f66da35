package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"revoice/internal/services"
)

// AudioFormat selects the codec family for extracted audio.
type AudioFormat string

const (
	// FormatLossless extracts 44.1 kHz stereo signed 16-bit PCM in a WAV
	// container, the canonical layout every downstream stage consumes.
	FormatLossless AudioFormat = "pcm"
	// FormatCompressed extracts 192 kbps MP3 at the same rate and layout.
	FormatCompressed AudioFormat = "mp3"
)

const (
	// CanonicalSampleRate is the sample rate used for all intermediate audio.
	CanonicalSampleRate = 44100
	// CanonicalChannels is the channel layout used for all intermediate audio.
	CanonicalChannels = 2
)

// Runner abstracts command execution so tests can avoid shelling out. It
// returns combined stdout+stderr.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Tool invokes the ffmpeg binary for extraction, slicing, silence detection,
// lossless concatenation, and remuxing.
type Tool struct {
	binary string
	run    Runner
}

// NewTool constructs a Tool around the given ffmpeg binary ("ffmpeg" when empty).
func NewTool(binary string) *Tool {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Tool{binary: binary}
}

// WithRunner sets a custom command runner (for testing).
func (t *Tool) WithRunner(run Runner) *Tool {
	t.run = run
	return t
}

func (t *Tool) exec(ctx context.Context, args ...string) ([]byte, error) {
	if t.run != nil {
		return t.run(ctx, t.binary, args...)
	}
	cmd := exec.CommandContext(ctx, t.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return output, services.Wrap(services.ErrToolMissing, "", "ffmpeg", fmt.Sprintf("binary %q not found", t.binary), nil)
		}
		if ctx.Err() != nil {
			return output, services.Wrap(services.ErrTimeout, "", "ffmpeg", "command aborted", ctx.Err())
		}
		return output, fmt.Errorf("%s: %w: %s", t.binary, err, strings.TrimSpace(tail(string(output), 400)))
	}
	return output, nil
}

// ExtractAudio transcodes the audio track of source into the canonical
// sample rate and channel layout, writing dest in the requested format.
func (t *Tool) ExtractAudio(ctx context.Context, source string, format AudioFormat, dest string) error {
	if source == "" || dest == "" {
		return errors.New("extract audio: source and dest required")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("extract audio: ensure dest dir: %w", err)
	}
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", source, "-vn",
		"-ar", strconv.Itoa(CanonicalSampleRate),
		"-ac", strconv.Itoa(CanonicalChannels),
	}
	switch format {
	case FormatCompressed:
		args = append(args, "-codec:a", "libmp3lame", "-b:a", "192k")
	default:
		args = append(args, "-codec:a", "pcm_s16le")
	}
	args = append(args, dest)
	_, err := t.exec(ctx, args...)
	return err
}

// TranscodeToCanonicalWav rewrites any audio input as canonical PCM WAV.
// Replacement clips arrive from providers as MP3; normalizing them first
// keeps the final concat a pure stream copy.
func (t *Tool) TranscodeToCanonicalWav(ctx context.Context, source, dest string) error {
	return t.ExtractAudio(ctx, source, FormatLossless, dest)
}

// Slice copies the [start, end) interval of audio into dest without
// re-encoding the samples.
func (t *Tool) Slice(ctx context.Context, source string, start, end float64, dest string) error {
	if source == "" || dest == "" {
		return errors.New("slice: source and dest required")
	}
	if end <= start {
		return fmt.Errorf("slice: end %.3f must be after start %.3f", end, start)
	}
	_, err := t.exec(ctx, "-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-codec:a", "copy",
		dest)
	return err
}

// Concat joins the chunk files into dest using the concat demuxer with pure
// stream copy. All chunks must already share the canonical layout.
func (t *Tool) Concat(ctx context.Context, chunks []string, dest string) error {
	if len(chunks) == 0 {
		return errors.New("concat: at least one chunk required")
	}
	if dest == "" {
		return errors.New("concat: dest required")
	}

	listPath := dest + ".concat.txt"
	var list strings.Builder
	for _, chunk := range chunks {
		fmt.Fprintf(&list, "file '%s'\n", escapeConcatPath(chunk))
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("concat: write list: %w", err)
	}
	defer os.Remove(listPath)

	_, err := t.exec(ctx, "-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-codec", "copy",
		dest)
	return err
}

// Mux replaces the audio stream of video with audio, copying the video
// stream untouched. -shortest truncates the output at the earlier stream end
// so neither frozen video nor dead air is produced.
func (t *Tool) Mux(ctx context.Context, video, audio, dest string) error {
	if video == "" || audio == "" || dest == "" {
		return errors.New("mux: video, audio, and dest required")
	}
	_, err := t.exec(ctx, "-y", "-hide_banner", "-loglevel", "error",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		dest)
	return err
}

// SilenceRange is one detected silence interval.
type SilenceRange struct {
	Start float64
	End   float64
}

// DetectSilence runs the silencedetect filter and returns the detected
// silence intervals. noiseDB is the threshold in dBFS (negative), minDur the
// minimum silence duration in seconds.
func (t *Tool) DetectSilence(ctx context.Context, audio string, noiseDB, minDur float64) ([]SilenceRange, error) {
	if audio == "" {
		return nil, errors.New("silencedetect: audio required")
	}
	filter := fmt.Sprintf("silencedetect=noise=%.1fdB:d=%s", noiseDB, formatSeconds(minDur))
	output, err := t.exec(ctx, "-hide_banner", "-nostats",
		"-i", audio,
		"-af", filter,
		"-f", "null", "-")
	if err != nil {
		return nil, err
	}
	return parseSilence(string(output)), nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func escapeConcatPath(path string) string {
	// The concat demuxer list format quotes with single quotes; embedded
	// quotes need the '\'' dance.
	return strings.ReplaceAll(path, "'", `'\''`)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
