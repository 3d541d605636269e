package render

import (
	"fmt"
	"os"
	"strings"
)

// writeSubtitles emits an SRT file with one entry per sentence, timed to the
// narration windows.
func writeSubtitles(path string, clips []Clip) error {
	var b strings.Builder
	for i, clip := range clips {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(clip.Start), srtTimestamp(clip.End), clip.Text)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	millis := int((seconds - float64(total)) * 1000)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, millis)
}
