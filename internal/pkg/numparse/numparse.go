// Package numparse extracts numeric quality values from the loosely
// formatted strings media providers put into bitrate and resolution
// fields ("320kbps", "1080", "4K HDR", "high").
package numparse

import (
	"regexp"
	"strconv"
)

var (
	re8k     = regexp.MustCompile(`(?i)\b8k\b`)
	re4k     = regexp.MustCompile(`(?i)\b4k\b`)
	re2k     = regexp.MustCompile(`(?i)\b2k\b`)
	reDigits = regexp.MustCompile(`[0-9]+`)
)

// Extract returns a best-effort non-negative integer from s. Resolution
// class labels win over embedded digits, then the first 3-4 digit run
// (resolutions, bitrates), then the first exactly-2 digit run (small
// bitrates). Zero means unknown and callers must rank it lowest.
func Extract(s string) int {
	if s == "" {
		return 0
	}

	switch {
	case re8k.MatchString(s):
		return 4320
	case re4k.MatchString(s):
		return 2160
	case re2k.MatchString(s):
		return 1440
	}

	runs := reDigits.FindAllString(s, -1)

	for _, run := range runs {
		if len(run) == 3 || len(run) == 4 {
			n, _ := strconv.Atoi(run)
			return n
		}
	}

	for _, run := range runs {
		if len(run) == 2 {
			n, _ := strconv.Atoi(run)
			return n
		}
	}

	return 0
}
