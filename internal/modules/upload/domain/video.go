package domain

import (
	"encoding/csv"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/samber/oops"
)

// Video is one manifest entry.
type Video struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Upload describes a single sendVideo call.
type Upload struct {
	Path     string
	FileName string
	Caption  string
	Width    int
	Height   int
}

// Report is the outcome of processing one Video.
type Report struct {
	Outcome Outcome
	Video   Video
	Reason  string
}

// Line renders the report as a line of the run's output file:
// OUTCOME,url,title[,reason]
func (r Report) Line() string {
	fields := []string{strings.ToUpper(r.Outcome.String()), r.Video.URL, r.Video.Title}
	if r.Reason != "" {
		fields = append(fields, r.Reason)
	}
	return strings.Join(fields, ",")
}

var urlRE = regexp.MustCompile(`(?i)^https?://`)

// ParseManifest reads "URL[, title]" lines. Lines that do not start with a
// URL are ignored; a blank title means none.
func ParseManifest(r io.Reader) ([]Video, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var videos []Video
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, oops.With("context", "failed to parse manifest").Wrap(err)
		}
		if len(row) == 0 {
			continue
		}

		url := strings.TrimSpace(row[0])
		if !urlRE.MatchString(url) {
			continue
		}
		v := Video{URL: url}
		if len(row) > 1 {
			v.Title = strings.TrimSpace(row[1])
		}
		videos = append(videos, v)
	}
	return videos, nil
}
