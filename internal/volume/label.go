package volume

import (
	"regexp"
	"strings"
)

var (
	allDigitsPattern = regexp.MustCompile(`^\d+$`)
	shortCodePattern = regexp.MustCompile(`^[A-Z0-9_]{1,4}$`)
)

// IsGenericLabel reports whether a volume label is a placeholder written by
// authoring software rather than a name worth showing.
func IsGenericLabel(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return true
	}

	upper := strings.ToUpper(label)
	patterns := []string{
		"CDROM", "CD_ROM", "DVD_VIDEO", "BDROM", "BD_ROM", "NEW_VOLUME",
		"UNTITLED", "VOLUME_", "VOLUME ID", "DISK_", "TRACK_",
	}
	for _, pattern := range patterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}

	if allDigitsPattern.MatchString(label) {
		return true
	}
	return shortCodePattern.MatchString(upper)
}
