package vocab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_captions/internal/engine"
)

const maxTranscriptRunes = 24000

// CompleteFunc sends a system and user prompt and returns the raw completion.
type CompleteFunc func(ctx context.Context, system, prompt string) (string, error)

// LLMService implements Service on top of an OpenAI-compatible completion.
type LLMService struct {
	complete CompleteFunc
}

// NewLLMService uses engine.CallLLM when complete is nil.
func NewLLMService(complete CompleteFunc) *LLMService {
	if complete == nil {
		complete = engine.CallLLM
	}
	return &LLMService{complete: complete}
}

// Candidates asks the model for candidate terms and filters them against the transcript.
// When the model returns nothing usable, tokens are ranked straight from the text.
func (s *LLMService) Candidates(ctx context.Context, req CandidatesRequest) ([]Candidate, error) {
	text := strings.TrimSpace(req.SubtitlesText)
	if text == "" {
		return nil, errors.New("vocab: empty transcript")
	}
	maxItems := req.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	lang := langHint(req.CaptionLang)

	system := fmt.Sprintf("You are a vocabulary curator. Work only within the source language (%s).", lang)
	prompt := fmt.Sprintf(`Extract high-value words and short phrases from the transcript below, in its original language.
Set "term" to the exact surface string as it appears. Exclude fillers, bare function words, names and numbers.
Limit to about %d items. Return raw JSON only:
{"items":[{"term":string,"type":"word"|"phrase","freq":number}]}

Transcript (language: %s):

%s`, maxItems, lang, engine.TruncateRunes(text, maxTranscriptRunes, ""))

	var parsed struct {
		Items []Candidate `json:"items"`
	}
	if err := s.completeJSON(ctx, system, prompt, &parsed); err != nil {
		if errors.Is(err, engine.ErrLLMDisabled) || ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("vocab: candidates response unusable, ranking tokens", slog.Any("error", err))
	}
	return filterCandidates(parsed.Items, text, req.CaptionLang, maxItems), nil
}

// Cards asks the model for one card per selected term, aligned to the selection order.
func (s *LLMService) Cards(ctx context.Context, req CardsRequest) ([]Card, error) {
	if len(req.Selected) == 0 {
		return nil, errors.New("vocab: no terms selected")
	}
	lang := langHint(req.CaptionLang)

	var items, evidence strings.Builder
	for i, c := range req.Selected {
		fmt.Fprintf(&items, "%d. %s\n", i+1, c.Term)
	}
	for i, ev := range req.Evidence {
		fmt.Fprintf(&evidence, "%d. %s\n", i+1, ev.Term)
		if len(ev.Lines) == 0 {
			evidence.WriteString("- (no match)\n")
		}
		for _, l := range ev.Lines {
			evidence.WriteString("- " + l + "\n")
		}
	}

	system := "You are a multilingual lexicographer. Produce compact learner cards with source-true pronunciation and meanings constrained by context."
	prompt := fmt.Sprintf(`For each item produce pronunciation, a part of speech, a short definition grounded in the evidence,
exactly two examples in the source language (%s) each followed by a translation on a second line, and brief notes.
If the sense is ambiguous, keep the definition minimal and add "insufficient_context" to notes.
Return raw JSON only, one card per item, same order:
{"cards":[{"term":string,"reading":string,"ipa":string,"ipa_us":string,"ipa_uk":string,"pos":string,"definition":string,"examples":[string],"notes":string}]}

Evidence:
%s
Items:
%s`, lang, evidence.String(), items.String())

	var parsed struct {
		Cards []Card `json:"cards"`
	}
	if err := s.completeJSON(ctx, system, prompt, &parsed); err != nil {
		return nil, err
	}
	return alignCards(parsed.Cards, req.Selected, req.CaptionLang), nil
}

func (s *LLMService) completeJSON(ctx context.Context, system, prompt string, v any) error {
	raw, err := s.complete(ctx, system, prompt)
	if err != nil {
		return err
	}
	block := engine.ExtractJSONBlock(raw)
	if block == "" {
		return fmt.Errorf("no JSON in response: %s", engine.Truncate(raw, 120))
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func langHint(code string) string {
	if n := engine.NormLang(code); n != engine.LangUndetermined {
		return n
	}
	return "auto-detect"
}
