package stitch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/diarize"
	"revoice/internal/logging"
	"revoice/internal/services"
)

const stageName = "stitching"

// MediaTool is the slice of the ffmpeg adapter the stitcher needs.
type MediaTool interface {
	Slice(ctx context.Context, source string, start, end float64, dest string) error
	Concat(ctx context.Context, chunks []string, dest string) error
	TranscodeToCanonicalWav(ctx context.Context, source, dest string) error
}

// Result reports a completed stitch.
type Result struct {
	OutputPath string
	// ReplacedSlots and FallbackSlots partition the segment indices by
	// whether a replacement clip or an original-audio slice filled them.
	ReplacedSlots []int
	FallbackSlots []int
}

// Stitcher builds the final audio track.
type Stitcher struct {
	tool   MediaTool
	logger *slog.Logger
}

// New constructs a Stitcher.
func New(tool MediaTool, logger *slog.Logger) *Stitcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stitcher{tool: tool, logger: logger}
}

// Stitch walks segments in chronological order, filling each slot from the
// speaker's replacement queue when a clip is pending and from the original
// audio otherwise. An exhausted queue is graceful degradation, not an error.
// Exactly one chunk is produced per segment; chunks are concatenated without
// re-encoding into dest. Intermediate chunks are removed after a successful
// concat and cleaned up best-effort on failure.
func (s *Stitcher) Stitch(ctx context.Context, originalAudio string, segments []diarize.SpeakerSegment, replacements map[string][]string, workDir, dest string) (Result, error) {
	var result Result
	if originalAudio == "" {
		return result, services.Wrap(services.ErrInputInvalid, stageName, "stitch", "original audio required", nil)
	}
	if len(segments) == 0 {
		return result, services.Wrap(services.ErrInputInvalid, stageName, "stitch", "no segments to stitch", nil)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrInputInvalid, stageName, "stitch", "ensure workdir", err)
	}

	// Copy the queues so a failed run does not leave the caller's map
	// half-consumed.
	queues := make(map[string][]string, len(replacements))
	for speaker, clips := range replacements {
		queues[speaker] = append([]string(nil), clips...)
	}

	chunks := make([]string, 0, len(segments))
	cleanup := func() {
		for _, chunk := range chunks {
			if err := os.Remove(chunk); err != nil && !os.IsNotExist(err) {
				s.logger.Warn("chunk cleanup failed",
					logging.String("path", chunk),
					logging.Error(err))
			}
		}
	}

	for i, segment := range segments {
		if err := ctx.Err(); err != nil {
			cleanup()
			return result, err
		}
		chunk := filepath.Join(workDir, fmt.Sprintf("chunk_%03d.wav", i))
		if queue := queues[segment.Speaker]; len(queue) > 0 {
			clip := queue[0]
			queues[segment.Speaker] = queue[1:]
			// Replacement clips arrive in whatever container the provider
			// produced; normalizing here keeps the concat itself copy-only.
			if err := s.tool.TranscodeToCanonicalWav(ctx, clip, chunk); err != nil {
				cleanup()
				return result, err
			}
			result.ReplacedSlots = append(result.ReplacedSlots, i)
		} else {
			if err := s.tool.Slice(ctx, originalAudio, segment.Start, segment.End, chunk); err != nil {
				cleanup()
				return result, err
			}
			result.FallbackSlots = append(result.FallbackSlots, i)
		}
		chunks = append(chunks, chunk)
	}

	if err := s.tool.Concat(ctx, chunks, dest); err != nil {
		cleanup()
		return result, err
	}
	cleanup()

	leftover := 0
	for _, queue := range queues {
		leftover += len(queue)
	}
	if leftover > 0 {
		s.logger.Warn("replacement clips left unconsumed", logging.Int("count", leftover))
	}
	s.logger.Info("stitched final track",
		logging.Int("segments", len(segments)),
		logging.Int("replaced", len(result.ReplacedSlots)),
		logging.Int("fallback", len(result.FallbackSlots)),
		logging.String("output", filepath.Base(dest)))

	result.OutputPath = dest
	return result, nil
}

// QueuesFromClips groups clip paths by speaker, preserving order, for callers
// holding per-speaker batch results.
func QueuesFromClips(bySpeaker map[string][]string) map[string][]string {
	queues := make(map[string][]string, len(bySpeaker))
	for speaker, clips := range bySpeaker {
		speaker = strings.TrimSpace(speaker)
		if speaker == "" || len(clips) == 0 {
			continue
		}
		queues[speaker] = append([]string(nil), clips...)
	}
	return queues
}
