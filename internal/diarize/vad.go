package diarize

import (
	"revoice/internal/media/ffmpeg"
)

const (
	vadConfidence    = 0.6
	singleConfidence = 0.7

	speakerA = "speaker_0"
	speakerB = "speaker_1"
)

// minSpeechSeconds drops slivers of "speech" shorter than this between two
// silence ranges; they are detection noise, not turns.
const minSpeechSeconds = 0.1

// segmentsFromSilence converts detected silence ranges into speech segments
// covering their complement of [0, total]. Speaker labels alternate between
// two identities: every segment longer than alternateAfter seconds flips the
// label for the segments that follow it, shorter segments keep the current
// label. The labels are approximate groupings, not verified identity.
func segmentsFromSilence(silences []ffmpeg.SilenceRange, total, alternateAfter float64) []SpeakerSegment {
	if total <= 0 {
		return nil
	}

	var speech []SpeakerSegment
	cursor := 0.0
	for _, silence := range silences {
		end := silence.End
		if end < 0 || end > total {
			end = total
		}
		start := silence.Start
		if start < cursor {
			start = cursor
		}
		if start-cursor >= minSpeechSeconds {
			speech = append(speech, SpeakerSegment{Start: cursor, End: start})
		}
		if end > cursor {
			cursor = end
		}
	}
	if total-cursor >= minSpeechSeconds {
		speech = append(speech, SpeakerSegment{Start: cursor, End: total})
	}

	current := speakerA
	for i := range speech {
		speech[i].Speaker = current
		speech[i].Confidence = vadConfidence
		if speech[i].Duration() > alternateAfter {
			if current == speakerA {
				current = speakerB
			} else {
				current = speakerA
			}
		}
	}
	return speech
}

// singleSegment is the last-resort result: the whole duration attributed to
// one speaker.
func singleSegment(total float64) []SpeakerSegment {
	if total <= 0 {
		return nil
	}
	return []SpeakerSegment{{
		Speaker:    speakerA,
		Start:      0,
		End:        total,
		Confidence: singleConfidence,
	}}
}
