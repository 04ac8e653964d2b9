package captions

import (
	"encoding/json"
	"strings"

	"github.com/anatolykoptev/go_captions/internal/engine"
)

// dig walks a decoded JSON tree. String keys index objects, ints index arrays.
// Any mismatch yields nil.
func dig(v any, path ...any) any {
	for _, p := range path {
		switch k := p.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			v = m[k]
		case int:
			a, ok := v.([]any)
			if !ok || k < 0 || k >= len(a) {
				return nil
			}
			v = a[k]
		default:
			return nil
		}
	}
	return v
}

func digString(v any, path ...any) string {
	s, _ := dig(v, path...).(string)
	return s
}

func digSlice(v any, path ...any) []any {
	a, _ := dig(v, path...).([]any)
	return a
}

// segmentListPaths locate the transcript segments inside one get_transcript action.
var segmentListPaths = [][]any{
	{"updateEngagementPanelAction", "content", "transcriptRenderer", "content",
		"transcriptSearchPanelRenderer", "body", "transcriptSegmentListRenderer", "initialSegments"},
	{"appendContinuationItemsAction", "continuationItems"},
	{"reloadContinuationItemsCommand", "continuationItems"},
	{"updateEngagementPanelAction", "content", "transcriptRenderer", "body",
		"transcriptBodyRenderer", "cueGroups"},
}

// DecodeTranscriptPanel decodes an InnerTube get_transcript response.
func DecodeTranscriptPanel(data []byte) []string {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil
	}
	return decodePanelTree(root)
}

func decodePanelTree(root any) []string {
	for _, action := range digSlice(root, "actions") {
		for _, path := range segmentListPaths {
			segs := digSlice(action, path...)
			if len(segs) == 0 {
				continue
			}
			if lines := segmentLines(segs); len(lines) > 0 {
				return lines
			}
		}
	}
	return nil
}

func segmentLines(segs []any) []string {
	var lines []string
	for _, seg := range segs {
		var raw string
		if r := dig(seg, "transcriptSegmentRenderer"); r != nil {
			raw = snippetText(dig(r, "snippet"))
		} else if cue := dig(seg, "transcriptCueGroupRenderer", "cues", 0, "transcriptCueRenderer", "cue"); cue != nil {
			raw = snippetText(cue)
		}
		if raw == "" {
			continue
		}
		if text := engine.CollapseSpace(engine.StripTags(engine.DecodeEntities(raw))); text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}

// snippetText reads simpleText, then runs[].text, then text.
func snippetText(snippet any) string {
	if s := digString(snippet, "simpleText"); s != "" {
		return s
	}
	if runs := digSlice(snippet, "runs"); len(runs) > 0 {
		var sb strings.Builder
		for _, r := range runs {
			sb.WriteString(digString(r, "text"))
		}
		return sb.String()
	}
	return digString(snippet, "text")
}
