// Package toolserver registers the caption and vocabulary MCP tools.
package toolserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_captions/internal/engine/store"
	"github.com/anatolykoptev/go_captions/internal/engine/vocab"
	"github.com/anatolykoptev/go_captions/internal/toolutil"
)

// Deps are the collaborators shared by all tools. Store may be nil.
type Deps struct {
	Pipeline *toolutil.Pipeline
	Vocab    vocab.Service
	Store    store.Store
}

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 4

// RegisterTools registers youtube_transcript, vocab_candidates, vocab_cards and video_record_get.
func RegisterTools(server *mcp.Server, d Deps) {
	registerTranscript(server, d)
	registerVocabCandidates(server, d)
	registerVocabCards(server, d)
	registerVideoRecordGet(server, d)
}

func registerTranscript(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Extract the caption text of a YouTube video as plain newline-delimited text. Accepts a watch/shorts/embed/youtu.be URL or an 11-character video id. Optional language, vss_id or translation_language pick the caption track; otherwise the player's default track or the first manual track is used. Tries the caption track, then the transcript panel, then legacy timedtext endpoints.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input toolutil.TranscribeInput) (*mcp.CallToolResult, *toolutil.Transcript, error) {
		if input.URL == "" && input.VideoID == "" {
			return nil, nil, errors.New("url or video_id is required")
		}
		out, err := d.Pipeline.Transcribe(ctx, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func registerVocabCandidates(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "vocab_candidates",
		Description: "Pick learnable words and phrases from a transcript. Pass subtitles_text directly, or a video_id previously processed by youtube_transcript. Results are filtered to terms that really occur in the text and saved on the video record.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input CandidatesInput) (*mcp.CallToolResult, *CandidatesOutput, error) {
		out, err := vocabCandidates(ctx, d, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func registerVocabCards(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "vocab_cards",
		Description: "Build learner cards (reading, IPA, part of speech, definition, two examples) for selected terms, grounded in transcript lines that contain them. Returns exactly one card per term in selection order.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input CardsInput) (*mcp.CallToolResult, *CardsOutput, error) {
		out, err := vocabCards(ctx, d, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func registerVideoRecordGet(server *mcp.Server, d Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_record_get",
		Description: "Return the saved record for a video: title, transcript text, caption language, vocabulary candidates and cards.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input RecordInput) (*mcp.CallToolResult, *store.VideoRecord, error) {
		rec, err := videoRecord(ctx, d, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, rec, nil
	})
}
