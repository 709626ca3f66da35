package ffmpeg

import (
	"strconv"
	"strings"
)

// parseSilence extracts silence intervals from silencedetect stderr output.
// The filter logs lines of the form:
//
//	[silencedetect @ 0x...] silence_start: 3.01496
//	[silencedetect @ 0x...] silence_end: 4.0 | silence_duration: 0.98504
//
// A trailing silence_start without a matching silence_end means the input
// ended silent; the range stays open and is closed by the caller against the
// total duration.
func parseSilence(output string) []SilenceRange {
	var ranges []SilenceRange
	var pending *SilenceRange

	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "silencedetect") {
			continue
		}
		if idx := strings.Index(line, "silence_start:"); idx >= 0 {
			value := firstField(line[idx+len("silence_start:"):])
			if start, err := strconv.ParseFloat(value, 64); err == nil {
				pending = &SilenceRange{Start: start, End: -1}
			}
			continue
		}
		if idx := strings.Index(line, "silence_end:"); idx >= 0 {
			value := firstField(line[idx+len("silence_end:"):])
			end, err := strconv.ParseFloat(value, 64)
			if err != nil {
				continue
			}
			if pending != nil {
				pending.End = end
				ranges = append(ranges, *pending)
				pending = nil
			} else {
				ranges = append(ranges, SilenceRange{Start: 0, End: end})
			}
		}
	}
	if pending != nil {
		ranges = append(ranges, *pending)
	}
	return ranges
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
