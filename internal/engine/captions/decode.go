package captions

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_captions/internal/engine"
)

// segmentDoc is the json3/srv3 timedtext shape.
type segmentDoc struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// DecodeSegmentJSON decodes json3/srv3 captions, one line per event.
func DecodeSegmentJSON(data []byte) []string {
	var doc segmentDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	var lines []string
	for _, ev := range doc.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		var sb strings.Builder
		for _, s := range ev.Segs {
			sb.WriteString(s.UTF8)
		}
		if line := engine.CollapseSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

var (
	vttTimestampRe = regexp.MustCompile(`^(\d{2}:)?\d{2}:\d{2}\.\d{3}\s+-->`)
	vttIndexRe     = regexp.MustCompile(`^\d+$`)
	vttNoteRe      = regexp.MustCompile(`^NOTE(\s|$)`)
	vttHeaderRe    = regexp.MustCompile(`(?i)^WEBVTT`)
	lineSplitRe    = regexp.MustCompile(`\r?\n`)
)

// DecodeWebVTT decodes a WebVTT cue sheet, one line per cue.
func DecodeWebVTT(s string) []string {
	s = strings.TrimPrefix(s, "\ufeff")
	var (
		lines []string
		cue   []string
	)
	flush := func() {
		if line := engine.CollapseSpace(strings.Join(cue, " ")); line != "" {
			lines = append(lines, line)
		}
		cue = cue[:0]
	}
	for i, raw := range lineSplitRe.Split(s, -1) {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flush()
			continue
		case i == 0 && vttHeaderRe.MatchString(line):
			continue
		case vttNoteRe.MatchString(line), vttIndexRe.MatchString(line), vttTimestampRe.MatchString(line):
			continue
		}
		if text := strings.TrimSpace(engine.StripTags(line)); text != "" {
			cue = append(cue, text)
		}
	}
	flush()
	return lines
}

type timedTextXML struct {
	Lines []struct {
		Text string `xml:",chardata"`
	} `xml:"text"`
}

// DecodeTimedTextXML decodes the srv1 XML format served when no fmt is given.
func DecodeTimedTextXML(data []byte) []string {
	var tt timedTextXML
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil
	}
	var lines []string
	for _, l := range tt.Lines {
		if text := engine.CollapseSpace(engine.CleanHTML(engine.DecodeEntities(l.Text))); text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}

// isJSONLike reports whether a Content-Type denotes JSON.
func isJSONLike(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}

// DecodeAuto picks a decoder from the content type, then by sniffing the body.
func DecodeAuto(contentType string, body []byte) []string {
	if isJSONLike(contentType) {
		return DecodeSegmentJSON(body)
	}
	trimmed := bytes.TrimSpace(body)
	if json.Valid(trimmed) {
		return DecodeSegmentJSON(trimmed)
	}
	if bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<transcript")) {
		return DecodeTimedTextXML(trimmed)
	}
	return DecodeWebVTT(string(body))
}
