// Package vocab turns a transcript into vocabulary candidates and learner
// cards. It consumes the caption pipeline output: newline-delimited text plus
// a best-effort language tag.
package vocab

import "context"

// DefaultMaxItems is used when a request does not set MaxItems.
const DefaultMaxItems = 60

// Candidate is one learnable word or phrase found in the transcript.
type Candidate struct {
	Term string `json:"term" jsonschema:"surface form exactly as it appears in the transcript"`
	Type string `json:"type,omitempty" jsonschema:"word or phrase"`
	Freq int    `json:"freq,omitempty" jsonschema:"rough count in the transcript"`
}

// Evidence is up to a few transcript lines that show a term in use.
type Evidence struct {
	Term  string   `json:"term"`
	Lines []string `json:"lines"`
}

// Card is one learner flashcard.
type Card struct {
	Term       string   `json:"term"`
	Reading    string   `json:"reading,omitempty"`
	IPA        string   `json:"ipa,omitempty"`
	IPAUS      string   `json:"ipa_us,omitempty"`
	IPAUK      string   `json:"ipa_uk,omitempty"`
	POS        string   `json:"pos,omitempty"`
	Definition string   `json:"definition"`
	Examples   []string `json:"examples,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// CandidatesRequest asks for candidate terms from a transcript.
type CandidatesRequest struct {
	SubtitlesText string
	CaptionLang   string
	MaxItems      int
}

// CardsRequest asks for cards for the selected terms.
type CardsRequest struct {
	Selected    []Candidate
	CaptionLang string
	Evidence    []Evidence
}

// Service is the vocabulary collaborator.
type Service interface {
	Candidates(ctx context.Context, req CandidatesRequest) ([]Candidate, error)
	Cards(ctx context.Context, req CardsRequest) ([]Card, error)
}
