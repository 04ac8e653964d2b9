package captions

import (
	"encoding/json"
	"net/url"
	"regexp"
)

const transcriptPanelID = "engagement-panel-searchable-transcript"

// getTranscriptRE extracts the token from a raw /next body when the tree walk fails.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

// continuationPaths are tried in order against the transcript panel content.
var continuationPaths = [][]any{
	{"continuationItemRenderer", "continuationEndpoint", "continuationCommand", "token"},
	{"continuationItemRenderer", "continuationEndpoint", "getTranscriptEndpoint", "params"},
	{"sectionListRenderer", "contents", 0, "continuationItemRenderer", "continuationEndpoint", "continuationCommand", "token"},
	{"sectionListRenderer", "contents", 0, "continuationItemRenderer", "continuationEndpoint", "getTranscriptEndpoint", "params"},
}

// ExtractContinuationToken finds the get_transcript token in a /next response.
// Returns "" when the response carries no transcript panel.
func ExtractContinuationToken(data []byte) string {
	var root any
	if err := json.Unmarshal(data, &root); err == nil {
		if tok := tokenFromTree(root); tok != "" {
			return tok
		}
	}
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// Params in the raw body are URL-encoded; get_transcript wants them decoded.
		if decoded, err := url.QueryUnescape(string(m[1])); err == nil {
			return decoded
		}
		return string(m[1])
	}
	return ""
}

func tokenFromTree(root any) string {
	content := transcriptPanelContent(root)
	if content == nil {
		return ""
	}
	for _, path := range continuationPaths {
		if tok := digString(content, path...); tok != "" {
			return tok
		}
	}
	for _, item := range digSlice(content, "sectionListRenderer", "contents") {
		menu := digSlice(item, "transcriptRenderer", "footer", "transcriptFooterRenderer",
			"languageMenu", "sortFilterSubMenuRenderer", "subMenuItems")
		if len(menu) == 0 {
			continue
		}
		chosen := menu[0]
		for _, m := range menu {
			if sel, _ := dig(m, "selected").(bool); sel {
				chosen = m
				break
			}
		}
		if tok := digString(chosen, "continuation", "reloadContinuationData", "continuation"); tok != "" {
			return tok
		}
	}
	return ""
}

func transcriptPanelContent(root any) any {
	for _, p := range digSlice(root, "engagementPanels") {
		r := dig(p, "engagementPanelSectionListRenderer")
		if digString(r, "panelIdentifier") == transcriptPanelID {
			return dig(r, "content")
		}
	}
	return nil
}
