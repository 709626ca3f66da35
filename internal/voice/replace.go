package voice

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"revoice/internal/diarize"
	"revoice/internal/logging"
)

// ReplacementClip is one synthesized clip destined for a stitcher queue.
type ReplacementClip struct {
	SegmentIndex int
	AudioPath    string
	Quality      string
}

// ReplaceResult reports batch replacement outcomes. Clips holds only the
// successes, sorted back into segment order; failed indices carry their error
// text so the caller can record artifacts.
type ReplaceResult struct {
	Clips              []ReplacementClip
	SuccessfulSegments []int
	FailedSegments     []int
	Errors             map[int]string
}

// ReplacedPaths returns the successful clip paths in segment order.
func (r ReplaceResult) ReplacedPaths() []string {
	paths := make([]string, 0, len(r.Clips))
	for _, clip := range r.Clips {
		paths = append(paths, clip.AudioPath)
	}
	return paths
}

// ReplaceSpeaker synthesizes one replacement clip per segment for a single
// speaker through a bounded worker pool. Segment-level failures never abort
// the batch; only context cancellation is returned as an error.
func (s *Synthesizer) ReplaceSpeaker(ctx context.Context, voiceID string, segments []diarize.SpeakerSegment, outputDir string) (ReplaceResult, error) {
	result := ReplaceResult{Errors: map[int]string{}}
	if len(segments) == 0 {
		return result, nil
	}

	type outcome struct {
		clip ReplacementClip
		err  error
	}
	outcomes := make([]outcome, len(segments))

	group, groupCtx := errgroup.WithContext(ctx)
	limit := s.cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	group.SetLimit(limit)

	dialogue := len(segments) > 1
	for i, segment := range segments {
		group.Go(func() error {
			if groupCtx.Err() != nil {
				outcomes[i] = outcome{err: groupCtx.Err()}
				return nil
			}
			synthesized, err := s.Synthesize(groupCtx, Request{
				Text:      segment.Text,
				VoiceID:   voiceID,
				OutputDir: outputDir,
				BaseName:  fmt.Sprintf("replacement_%03d", i),
				Dialogue:  dialogue,
			})
			if err != nil {
				outcomes[i] = outcome{err: err}
				return nil
			}
			outcomes[i] = outcome{clip: ReplacementClip{
				SegmentIndex: i,
				AudioPath:    synthesized.AudioPath,
				Quality:      synthesized.Quality,
			}}
			return nil
		})
	}
	// Workers never return errors, so Wait only reflects groupCtx.
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return result, err
	}

	for i, out := range outcomes {
		if out.err != nil {
			result.FailedSegments = append(result.FailedSegments, i)
			result.Errors[i] = out.err.Error()
			s.logger.Warn("segment synthesis failed",
				logging.Int("segment", i),
				logging.Error(out.err))
			continue
		}
		result.Clips = append(result.Clips, out.clip)
		result.SuccessfulSegments = append(result.SuccessfulSegments, i)
	}
	sort.Slice(result.Clips, func(a, b int) bool {
		return result.Clips[a].SegmentIndex < result.Clips[b].SegmentIndex
	})
	return result, nil
}
