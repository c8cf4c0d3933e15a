package service

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// ResolutionReader reports the pixel dimensions of a video file.
type ResolutionReader interface {
	Resolution(ctx context.Context, path string) (width, height int, err error)
}

// FFmpegResolution asks the ffprobe binary for the first video stream's size.
type FFmpegResolution struct {
	Bin string
}

func (p FFmpegResolution) Resolution(ctx context.Context, path string) (int, int, error) {
	bin := p.Bin
	if bin == "" {
		bin = "ffprobe"
	}
	out, err := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	).Output()
	if err != nil {
		return 0, 0, oops.With("path", path).Wrap(err)
	}
	return parseResolution(string(out))
}

// parseResolution parses ffprobe's "WxH" output.
func parseResolution(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.TrimSpace(s), "x")
	if !ok {
		return 0, 0, oops.Errorf("unexpected ffprobe output %q", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, oops.With("output", s).Wrap(err)
	}
	// Some containers report a trailing "x" after the height.
	height, err := strconv.Atoi(strings.TrimRight(h, "x"))
	if err != nil {
		return 0, 0, oops.With("output", s).Wrap(err)
	}
	return width, height, nil
}
