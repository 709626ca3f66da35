package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"revoice/internal/diarize"
	"revoice/internal/logging"
	"revoice/internal/media/ffmpeg"
	"revoice/internal/runs"
	"revoice/internal/services"
)

const (
	extractedAudioName = "audio.wav"
	stitchedAudioName  = "stitched.wav"
	transcriptName     = "transcript.txt"
	diarizationName    = "diarization.json"
)

// stageExtract probes the source container, rejects inputs without both a
// video and an audio stream, and extracts the audio track into the canonical
// layout.
func (p *Pipeline) stageExtract(ctx context.Context, run *runs.Run, st *State, workDir string) error {
	st.SourcePath = run.SourcePath

	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout())
	defer cancel()
	probed, err := p.probe(probeCtx, run.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrInputInvalid, string(runs.StepExtracting), "probe", "inspect source", err)
	}
	if probed.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrInputInvalid, string(runs.StepExtracting), "probe", "source has no video stream", nil)
	}
	if probed.AudioStreamCount() == 0 {
		return services.Wrap(services.ErrInputInvalid, string(runs.StepExtracting), "probe", "source has no audio stream", nil)
	}
	if size := probed.SizeBytes(); size > 0 && size < 1024 {
		return services.Wrap(services.ErrInputInvalid, string(runs.StepExtracting), "probe", "source smaller than 1 KiB", nil)
	}
	st.DurationSeconds = probed.DurationSeconds()
	if st.DurationSeconds <= 0 {
		if stream, ok := probed.FirstAudioStream(); ok {
			st.DurationSeconds = stream.DurationSeconds()
		}
	}
	if st.DurationSeconds <= 0 {
		return services.Wrap(services.ErrInputInvalid, string(runs.StepExtracting), "probe", "source reports no duration", nil)
	}

	audioPath := filepath.Join(workDir, extractedAudioName)
	if err := p.tool.ExtractAudio(ctx, run.SourcePath, ffmpeg.FormatLossless, audioPath); err != nil {
		return err
	}
	st.AudioPath = audioPath

	metadata, _ := json.Marshal(map[string]any{
		"duration_seconds": st.DurationSeconds,
		"sample_rate":      ffmpeg.CanonicalSampleRate,
		"channels":         ffmpeg.CanonicalChannels,
	})
	return p.store.AddArtifact(ctx, run.ID, runs.ArtifactAudio, audioPath, string(metadata))
}

// stageDiarize runs the diarization fallback chain and records the resulting
// segment map.
func (p *Pipeline) stageDiarize(ctx context.Context, run *runs.Run, st *State, workDir string) error {
	if st.AudioPath == "" {
		return services.Wrap(services.ErrInputInvalid, string(runs.StepDiarizing), "diarize", "no extracted audio, run extraction first", nil)
	}

	result, err := p.diarizer.Diarize(ctx, st.AudioPath, st.DurationSeconds)
	if err != nil {
		return err
	}
	st.Segments = result.Segments
	st.Method = string(result.Method)

	payload, err := json.MarshalIndent(map[string]any{
		"method":   result.Method,
		"speakers": result.TotalSpeakers,
		"segments": result.Segments,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode diarization: %w", err)
	}
	outPath := filepath.Join(workDir, diarizationName)
	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return fmt.Errorf("write diarization: %w", err)
	}
	metadata, _ := json.Marshal(map[string]any{
		"method":   result.Method,
		"speakers": result.TotalSpeakers,
		"segments": len(result.Segments),
	})
	return p.store.AddArtifact(ctx, run.ID, runs.ArtifactTranscript, outPath, string(metadata))
}

// stageTranscribe fills in text for every segment the diarizer left empty.
// Model-tier diarization already carries per-segment text; those segments are
// kept as-is.
func (p *Pipeline) stageTranscribe(ctx context.Context, run *runs.Run, st *State, workDir string) error {
	if len(st.Segments) == 0 {
		return services.Wrap(services.ErrInputInvalid, string(runs.StepTranscribing), "transcribe", "no segments, run diarization first", nil)
	}

	hint := st.Language
	if hint == "" {
		hint = p.cfg.Transcription.Language
	}

	for i := range st.Segments {
		if strings.TrimSpace(st.Segments[i].Text) != "" {
			continue
		}
		clipPath := filepath.Join(workDir, fmt.Sprintf("segment_%03d.wav", i))
		if err := p.tool.Slice(ctx, st.AudioPath, st.Segments[i].Start, st.Segments[i].End, clipPath); err != nil {
			return err
		}
		result, err := p.transcriber.Transcribe(ctx, clipPath, hint)
		if removeErr := os.Remove(clipPath); removeErr != nil && !os.IsNotExist(removeErr) {
			p.logger.Warn("segment clip cleanup failed",
				logging.String("path", clipPath),
				logging.Error(removeErr))
		}
		if err != nil {
			return err
		}
		st.Segments[i].Text = strings.TrimSpace(result.Text)
		if st.Language == "" && result.Language != "" {
			st.Language = result.Language
			hint = result.Language
		}
	}

	var transcript strings.Builder
	for _, segment := range st.Segments {
		fmt.Fprintf(&transcript, "%s: %s\n", segment.Speaker, segment.Text)
	}
	st.Transcript = transcript.String()

	outPath := filepath.Join(workDir, transcriptName)
	if err := os.WriteFile(outPath, []byte(st.Transcript), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	metadata, _ := json.Marshal(map[string]any{"language": st.Language})
	return p.store.AddArtifact(ctx, run.ID, runs.ArtifactTranscript, outPath, string(metadata))
}

// stageSynthesize clones each speaker's voice when the premium provider is
// configured and renders one replacement clip per segment. Clone failures
// degrade that speaker to standard quality; segment failures are recorded and
// the run continues with partial coverage.
func (p *Pipeline) stageSynthesize(ctx context.Context, run *runs.Run, st *State, workDir string) error {
	if len(st.Segments) == 0 {
		return services.Wrap(services.ErrInputInvalid, string(runs.StepSynthesizing), "synthesize", "no segments, run diarization first", nil)
	}

	bySpeaker := map[string][]int{}
	var order []string
	for i, segment := range st.Segments {
		if _, seen := bySpeaker[segment.Speaker]; !seen {
			order = append(order, segment.Speaker)
		}
		bySpeaker[segment.Speaker] = append(bySpeaker[segment.Speaker], i)
	}

	st.VoiceIDs = map[string]string{}
	st.Clips = map[string][]string{}
	st.FailedSegments = nil

	for _, speaker := range order {
		indices := bySpeaker[speaker]

		voiceID := ""
		if p.synthesizer.ProviderConfigured() {
			id, err := p.cloneSpeaker(ctx, st, workDir, speaker, indices)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Warn("voice clone failed, speaker degrades to standard quality",
					logging.String("speaker", speaker),
					logging.Error(err))
				metadata, _ := json.Marshal(map[string]string{
					"speaker":   speaker,
					"operation": "clone",
					"error":     services.Details(err),
				})
				if artErr := p.store.AddArtifact(ctx, run.ID, runs.ArtifactError, "", string(metadata)); artErr != nil {
					return artErr
				}
			} else {
				voiceID = id
				st.VoiceIDs[speaker] = id
			}
		}

		segments := make([]diarize.SpeakerSegment, 0, len(indices))
		for _, idx := range indices {
			segments = append(segments, st.Segments[idx])
		}
		clipDir := filepath.Join(workDir, "clips", speaker)
		result, err := p.synthesizer.ReplaceSpeaker(ctx, voiceID, segments, clipDir)
		if err != nil {
			return err
		}
		st.Clips[speaker] = result.ReplacedPaths()

		for _, local := range result.FailedSegments {
			global := indices[local]
			st.FailedSegments = append(st.FailedSegments, global)
			metadata, _ := json.Marshal(map[string]any{
				"speaker": speaker,
				"segment": global,
				"error":   result.Errors[local],
			})
			if artErr := p.store.AddArtifact(ctx, run.ID, runs.ArtifactError, "", string(metadata)); artErr != nil {
				return artErr
			}
		}
	}
	sort.Ints(st.FailedSegments)

	if len(st.FailedSegments) > 0 {
		run.SetProgress(fmt.Sprintf("synthesized with %d failed segments", len(st.FailedSegments)), run.ProgressPercent)
	}
	return nil
}

// cloneSpeaker slices the speaker's longest segment out of the extracted audio
// and registers it as the cloning reference sample.
func (p *Pipeline) cloneSpeaker(ctx context.Context, st *State, workDir, speaker string, indices []int) (string, error) {
	longest := indices[0]
	for _, idx := range indices[1:] {
		if st.Segments[idx].Duration() > st.Segments[longest].Duration() {
			longest = idx
		}
	}
	samplePath := filepath.Join(workDir, fmt.Sprintf("sample_%s.wav", speaker))
	segment := st.Segments[longest]
	if err := p.tool.Slice(ctx, st.AudioPath, segment.Start, segment.End, samplePath); err != nil {
		return "", err
	}
	return p.synthesizer.CloneVoice(ctx, speaker, samplePath)
}

// stageStitch rebuilds the audio timeline, spending each speaker's replacement
// clips in order and falling back to original slices where none remain.
func (p *Pipeline) stageStitch(ctx context.Context, run *runs.Run, st *State, workDir string) error {
	if st.AudioPath == "" || len(st.Segments) == 0 {
		return services.Wrap(services.ErrInputInvalid, string(runs.StepStitching), "stitch", "no segments, run earlier stages first", nil)
	}

	dest := filepath.Join(workDir, stitchedAudioName)
	result, err := p.stitcher.Stitch(ctx, st.AudioPath, st.Segments, st.Clips, workDir, dest)
	if err != nil {
		return err
	}
	st.StitchedPath = result.OutputPath

	metadata, _ := json.Marshal(map[string]any{
		"replaced": len(result.ReplacedSlots),
		"fallback": len(result.FallbackSlots),
	})
	return p.store.AddArtifact(ctx, run.ID, runs.ArtifactAudio, result.OutputPath, string(metadata))
}

// stageMux swaps the stitched track into the original container and marks the
// run done.
func (p *Pipeline) stageMux(ctx context.Context, run *runs.Run, st *State, workDir string) error {
	if st.StitchedPath == "" {
		return services.Wrap(services.ErrInputInvalid, string(runs.StepMuxing), "mux", "no stitched audio, run stitching first", nil)
	}
	if err := os.MkdirAll(p.cfg.Paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}

	dest := filepath.Join(p.cfg.Paths.OutputDir, outputName(st.SourcePath))
	if err := p.tool.Mux(ctx, st.SourcePath, st.StitchedPath, dest); err != nil {
		return err
	}
	st.OutputPath = dest

	metadata := ""
	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout())
	defer cancel()
	if probed, err := p.probe(probeCtx, dest); err == nil {
		encoded, _ := json.Marshal(map[string]any{
			"duration_seconds": probed.DurationSeconds(),
			"size_bytes":       probed.SizeBytes(),
		})
		metadata = string(encoded)
	} else {
		p.logger.Warn("output probe failed", logging.Error(err))
	}
	if err := p.store.AddArtifact(ctx, run.ID, runs.ArtifactVideo, dest, metadata); err != nil {
		return err
	}

	run.SetDone(dest)
	return nil
}

// outputName derives the output file name from the source, keeping the
// container extension.
func outputName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".replaced" + ext
}
