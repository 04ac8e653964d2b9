// go_captions: YouTube caption extraction MCP server.
//
// Exposes youtube_transcript, vocab_candidates, vocab_cards and video_record_get.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_captions/internal/engine"
	"github.com/anatolykoptev/go_captions/internal/engine/store"
	"github.com/anatolykoptev/go_captions/internal/engine/vocab"
	"github.com/anatolykoptev/go_captions/internal/toolserver"
	"github.com/anatolykoptev/go_captions/internal/toolutil"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	c := engine.Setup()

	st, err := store.Default(context.Background())
	if err != nil {
		slog.Warn("video store unavailable, records will not be saved", slog.Any("error", err))
	} else {
		defer st.Close()
	}
	if c.LLMClient == nil {
		slog.Warn("LLM_API_KEY not set, vocab tools will return errors")
	}

	slog.Info("starting go_captions",
		slog.String("port", mcpPort),
		slog.Bool("browser_client", c.BrowserClient != nil),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_captions",
		Version: version,
	}, nil)

	toolserver.RegisterTools(server, toolserver.Deps{
		Pipeline: toolutil.NewPipeline(st),
		Vocab:    vocab.NewLLMService(nil),
		Store:    st,
	})
	slog.Info("tools registered", slog.Int("count", toolserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_captions",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 300 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}
