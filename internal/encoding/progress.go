package encoding

import (
	"strconv"
	"strings"
)

// parseProgressLine interprets one key=value line from ffmpeg's
// -progress pipe:1 stream. durationSeconds of zero yields no percentage
// (indeterminate progress) but still surfaces the terminal marker.
//
// ffmpeg reports out_time_ms in microseconds; out_time_us is the newer,
// correctly named field and takes precedence when both appear.
func parseProgressLine(line string, durationSeconds float64) (ProgressUpdate, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return ProgressUpdate{}, false
	}
	value = strings.TrimSpace(value)

	switch key {
	case "out_time_us", "out_time_ms":
		micros, err := strconv.ParseInt(value, 10, 64)
		if err != nil || micros < 0 {
			return ProgressUpdate{}, false
		}
		if durationSeconds <= 0 {
			return ProgressUpdate{}, false
		}
		percent := float64(micros) / 1e6 / durationSeconds * 100
		if percent > 100 {
			percent = 100
		}
		return ProgressUpdate{Percent: percent, Message: "Encoding"}, true
	case "progress":
		if value == "end" {
			return ProgressUpdate{Percent: 100, Message: "Encode complete"}, true
		}
		return ProgressUpdate{}, false
	default:
		return ProgressUpdate{}, false
	}
}
