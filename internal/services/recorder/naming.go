package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const fileTimeFormat = "20060102150405.000000"

// destinationName derives a file name from the session start with
// microsecond precision, e.g. 20250101120000123456_motion_clip.mp4
func destinationName(start time.Time, suffix, ext string) string {
	base := strings.Replace(start.Format(fileTimeFormat), ".", "", 1)
	if suffix == "" {
		return base + ext
	}
	return base + "_" + suffix + ext
}

// uniquePath returns a path under dir that does not exist yet
func uniquePath(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
