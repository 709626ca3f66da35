package diarize

import "sort"

// SpeakerSegment is one speaker-attributed interval of the audio timeline.
// Segments are immutable once produced by a diarization pass.
type SpeakerSegment struct {
	Speaker    string
	Start      float64
	End        float64
	Confidence float64
	Text       string
}

// Duration returns the segment length in seconds.
func (s SpeakerSegment) Duration() float64 {
	return s.End - s.Start
}

// SpeakerSummary aggregates one speaker's share of the timeline.
type SpeakerSummary struct {
	TotalDuration float64
	Segments      []SpeakerSegment
}

// Method identifies which tier of the fallback chain produced a result.
type Method string

const (
	MethodModel         Method = "model"
	MethodVoiceActivity Method = "voice_activity"
	MethodSingleSegment Method = "single_segment"
)

// Result is the outcome of a diarization pass over one audio track.
type Result struct {
	Speakers      map[string]SpeakerSummary
	Segments      []SpeakerSegment // all segments in chronological order
	TotalSpeakers int
	Method        Method
}

// buildResult assembles a Result from a chronological segment list.
func buildResult(segments []SpeakerSegment, method Method) Result {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	speakers := make(map[string]SpeakerSummary)
	for _, seg := range segments {
		summary := speakers[seg.Speaker]
		summary.TotalDuration += seg.Duration()
		summary.Segments = append(summary.Segments, seg)
		speakers[seg.Speaker] = summary
	}
	return Result{
		Speakers:      speakers,
		Segments:      segments,
		TotalSpeakers: len(speakers),
		Method:        method,
	}
}
