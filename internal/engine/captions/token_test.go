package captions

import "testing"

func panelJSON(content string) string {
	return `{"engagementPanels":[
		{"engagementPanelSectionListRenderer":{"panelIdentifier":"engagement-panel-structured-description","content":{}}},
		{"engagementPanelSectionListRenderer":{"panelIdentifier":"engagement-panel-searchable-transcript","content":` + content + `}}]}`
}

func TestExtractContinuationToken(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			"continuation command",
			panelJSON(`{"continuationItemRenderer":{"continuationEndpoint":{"continuationCommand":{"token":"tok-cmd"}}}}`),
			"tok-cmd",
		},
		{
			"get transcript endpoint",
			panelJSON(`{"continuationItemRenderer":{"continuationEndpoint":{"getTranscriptEndpoint":{"params":"tok-params"}}}}`),
			"tok-params",
		},
		{
			"section list first item",
			panelJSON(`{"sectionListRenderer":{"contents":[{"continuationItemRenderer":{"continuationEndpoint":{"continuationCommand":{"token":"tok-section"}}}}]}}`),
			"tok-section",
		},
		{
			"language menu selected entry",
			panelJSON(`{"sectionListRenderer":{"contents":[{"transcriptRenderer":{"footer":{"transcriptFooterRenderer":{"languageMenu":{"sortFilterSubMenuRenderer":{"subMenuItems":[
				{"title":"German","continuation":{"reloadContinuationData":{"continuation":"tok-de"}}},
				{"title":"English","selected":true,"continuation":{"reloadContinuationData":{"continuation":"tok-en"}}}
			]}}}}}}]}}`),
			"tok-en",
		},
		{
			"language menu first entry",
			panelJSON(`{"sectionListRenderer":{"contents":[{"transcriptRenderer":{"footer":{"transcriptFooterRenderer":{"languageMenu":{"sortFilterSubMenuRenderer":{"subMenuItems":[
				{"title":"German","continuation":{"reloadContinuationData":{"continuation":"tok-de"}}},
				{"title":"English","continuation":{"reloadContinuationData":{"continuation":"tok-en"}}}
			]}}}}}}]}}`),
			"tok-de",
		},
		{
			"regex fallback unescapes",
			`{"somewhere":{"else":{"getTranscriptEndpoint":{"params":"Cgt%3D%3D"}}}}`,
			"Cgt==",
		},
		{
			"no transcript panel",
			`{"engagementPanels":[{"engagementPanelSectionListRenderer":{"panelIdentifier":"comments","content":{}}}]}`,
			"",
		},
		{"not json", `<html></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractContinuationToken([]byte(tt.data)); got != tt.want {
				t.Errorf("ExtractContinuationToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDig(t *testing.T) {
	tree := map[string]any{"a": []any{map[string]any{"b": "x"}}}
	if got := digString(tree, "a", 0, "b"); got != "x" {
		t.Errorf("digString = %q", got)
	}
	if got := dig(tree, "a", 5, "b"); got != nil {
		t.Errorf("out of range index should yield nil, got %v", got)
	}
	if got := dig(tree, "a", "b"); got != nil {
		t.Errorf("key on array should yield nil, got %v", got)
	}
	if got := dig("scalar", 0); got != nil {
		t.Errorf("index on scalar should yield nil, got %v", got)
	}
}
