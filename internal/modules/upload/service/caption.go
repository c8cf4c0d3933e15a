package service

import (
	"fmt"
	"strings"
	"time"
)

// NoResolution stands in when the resolution could not be read.
const NoResolution = "—"

// BuildCaption renders the caption sent with an uploaded video.
func BuildCaption(title, name string, size int64, width, height int, now time.Time) string {
	var lines []string
	if title != "" {
		lines = append(lines, "📺 "+title)
	}

	res := NoResolution
	if width > 0 && height > 0 {
		res = fmt.Sprintf("%dx%d", width, height)
	}

	lines = append(lines,
		"Name: "+name,
		fmt.Sprintf("Size: %.1f MB", float64(size)/(1<<20)),
		"Resolution: "+res,
		"Uploaded: "+now.Format("02 Jan 2006"),
	)
	return strings.Join(lines, "\n")
}
