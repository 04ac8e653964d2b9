package toolserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_captions/internal/engine/page"
	"github.com/anatolykoptev/go_captions/internal/engine/store"
	"github.com/anatolykoptev/go_captions/internal/engine/vocab"
)

const evidencePerTerm = 3

// CandidatesInput is the input for vocab_candidates.
type CandidatesInput struct {
	VideoID       string `json:"video_id,omitempty" jsonschema:"video whose saved transcript to use"`
	SubtitlesText string `json:"subtitles_text,omitempty" jsonschema:"transcript text, one caption line per row"`
	CaptionLang   string `json:"caption_lang,omitempty" jsonschema:"language of the transcript, e.g. en or ja"`
	MaxItems      int    `json:"max_items,omitempty" jsonschema:"maximum candidates to return (default 60)"`
}

// CandidatesOutput is the output of vocab_candidates.
type CandidatesOutput struct {
	VideoID    string            `json:"video_id,omitempty"`
	Language   string            `json:"language,omitempty"`
	Candidates []vocab.Candidate `json:"candidates"`
}

// CardsInput is the input for vocab_cards.
type CardsInput struct {
	VideoID       string   `json:"video_id,omitempty" jsonschema:"video whose saved transcript supplies the evidence lines"`
	Terms         []string `json:"terms" jsonschema:"selected terms, usually from vocab_candidates"`
	SubtitlesText string   `json:"subtitles_text,omitempty" jsonschema:"transcript text, used instead of the saved one"`
	CaptionLang   string   `json:"caption_lang,omitempty" jsonschema:"language of the transcript"`
}

// CardsOutput is the output of vocab_cards.
type CardsOutput struct {
	VideoID string       `json:"video_id,omitempty"`
	Cards   []vocab.Card `json:"cards"`
}

// RecordInput is the input for video_record_get.
type RecordInput struct {
	VideoID string `json:"video_id" jsonschema:"video id or YouTube URL"`
}

// transcriptFor returns the explicit text, or the saved transcript of videoID.
func transcriptFor(ctx context.Context, d Deps, videoID, text, lang string) (string, string, string, error) {
	id := page.ParseVideoID(videoID)
	if strings.TrimSpace(text) != "" {
		return id, text, lang, nil
	}
	if id == "" {
		return "", "", "", errors.New("subtitles_text or video_id is required")
	}
	if d.Store == nil {
		return "", "", "", errors.New("no video store configured, pass subtitles_text")
	}
	rec, err := d.Store.Get(ctx, id)
	if err != nil {
		return "", "", "", fmt.Errorf("%s: %w", id, err)
	}
	if rec.Text == "" {
		return "", "", "", fmt.Errorf("%s: no saved transcript, run youtube_transcript first", id)
	}
	if lang == "" {
		lang = rec.Language
	}
	return id, rec.Text, lang, nil
}

func vocabCandidates(ctx context.Context, d Deps, input CandidatesInput) (*CandidatesOutput, error) {
	id, text, lang, err := transcriptFor(ctx, d, input.VideoID, input.SubtitlesText, input.CaptionLang)
	if err != nil {
		return nil, err
	}
	items, err := d.Vocab.Candidates(ctx, vocab.CandidatesRequest{
		SubtitlesText: text,
		CaptionLang:   lang,
		MaxItems:      input.MaxItems,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []vocab.Candidate{}
	}
	save(ctx, d, store.VideoRecord{VideoID: id, Candidates: items})
	return &CandidatesOutput{VideoID: id, Language: lang, Candidates: items}, nil
}

func vocabCards(ctx context.Context, d Deps, input CardsInput) (*CardsOutput, error) {
	var selected []vocab.Candidate
	for _, t := range input.Terms {
		if t = strings.TrimSpace(t); t != "" {
			selected = append(selected, vocab.Candidate{Term: t})
		}
	}
	if len(selected) == 0 {
		return nil, errors.New("terms is required")
	}
	id, text, lang, err := transcriptFor(ctx, d, input.VideoID, input.SubtitlesText, input.CaptionLang)
	if err != nil {
		return nil, err
	}
	cards, err := d.Vocab.Cards(ctx, vocab.CardsRequest{
		Selected:    selected,
		CaptionLang: lang,
		Evidence:    vocab.BuildEvidence(text, selected, lang, evidencePerTerm),
	})
	if err != nil {
		return nil, err
	}
	save(ctx, d, store.VideoRecord{VideoID: id, Cards: cards})
	return &CardsOutput{VideoID: id, Cards: cards}, nil
}

func videoRecord(ctx context.Context, d Deps, input RecordInput) (*store.VideoRecord, error) {
	id := page.ParseVideoID(input.VideoID)
	if id == "" {
		return nil, errors.New("a valid video_id is required")
	}
	if d.Store == nil {
		return nil, errors.New("no video store configured")
	}
	return d.Store.Get(ctx, id)
}

func save(ctx context.Context, d Deps, patch store.VideoRecord) {
	if d.Store == nil || patch.VideoID == "" {
		return
	}
	if _, err := d.Store.Save(ctx, patch); err != nil {
		slog.Warn("video record not saved", slog.String("video_id", patch.VideoID), slog.Any("error", err))
	}
}
