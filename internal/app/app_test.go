package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/Harsha2sai/Maya-One/internal/app"
	"github.com/Harsha2sai/Maya-One/internal/config"
	mcpmock "github.com/Harsha2sai/Maya-One/internal/mcp/mock"
	"github.com/Harsha2sai/Maya-One/pkg/audio"
	audiomock "github.com/Harsha2sai/Maya-One/pkg/audio/mock"
	memorymock "github.com/Harsha2sai/Maya-One/pkg/memory/mock"
	llmmock "github.com/Harsha2sai/Maya-One/pkg/provider/llm/mock"
	sttmock "github.com/Harsha2sai/Maya-One/pkg/provider/stt/mock"
	ttsmock "github.com/Harsha2sai/Maya-One/pkg/provider/tts/mock"
	vadmock "github.com/Harsha2sai/Maya-One/pkg/provider/vad/mock"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// testConfig returns a minimal config sufficient to exercise New without a
// voice channel or chat transport configured.
func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
	}
}

func testProviders() *app.Providers {
	return &app.Providers{LLM: &llmmock.Provider{}}
}

func TestNew_WithMocks(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	providers := testProviders()
	sessions := &memorymock.SessionStore{}
	graph := &memorymock.GraphRAGQuerier{}
	mcpHost := &mcpmock.Host{}

	application, err := app.New(
		context.Background(),
		cfg,
		providers,
		app.WithSessionStore(sessions),
		app.WithKnowledgeGraph(graph),
		app.WithMCPHost(mcpHost),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}
}

func TestNew_RequiresLLMProvider(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	_, err := app.New(context.Background(), cfg, &app.Providers{})
	if err == nil {
		t.Fatal("New() with no LLM provider: expected error, got nil")
	}
}

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	providers := testProviders()
	sessions := &memorymock.SessionStore{}
	graph := &memorymock.GraphRAGQuerier{}
	mcpHost := &mcpmock.Host{}

	application, err := app.New(
		context.Background(),
		cfg,
		providers,
		app.WithSessionStore(sessions),
		app.WithKnowledgeGraph(graph),
		app.WithMCPHost(mcpHost),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	if got := mcpHost.CallCount("Close"); got != 1 {
		t.Errorf("MCP Host Close call count = %d, want 1", got)
	}

	// Calling Shutdown a second time must be a no-op, not a double-close.
	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
	if got := mcpHost.CallCount("Close"); got != 1 {
		t.Errorf("MCP Host Close call count after second Shutdown = %d, want 1", got)
	}
}

func TestApp_RunAndShutdown_WithVoiceChannel(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Transport.Discord.VoiceChannelID = "voice-channel-1"

	sttSession := &sttmock.Session{
		FinalsCh:   make(chan types.Transcript, 16),
		PartialsCh: make(chan types.Transcript, 16),
	}
	vadSession := &vadmock.Session{}

	providers := &app.Providers{
		LLM: &llmmock.Provider{},
		TTS: &ttsmock.Provider{},
		STT: &sttmock.Provider{Session: sttSession},
		VAD: &vadmock.Engine{Session: vadSession},
	}

	inputCh := make(chan audio.AudioFrame, 16)
	conn := &audiomock.Connection{
		InputStreamsResult: map[string]<-chan audio.AudioFrame{"player-1": inputCh},
		OutputStreamResult: make(chan audio.AudioFrame, 16),
	}
	providers.Audio = &audiomock.Platform{ConnectResult: conn}

	sessions := &memorymock.SessionStore{}
	graph := &memorymock.GraphRAGQuerier{}
	mcpHost := &mcpmock.Host{}

	application, err := app.New(
		context.Background(),
		cfg,
		providers,
		app.WithSessionStore(sessions),
		app.WithKnowledgeGraph(graph),
		app.WithMCPHost(mcpHost),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)

	inputCh <- audio.AudioFrame{Data: []byte{0x01, 0x02, 0x03, 0x04}, SampleRate: 48000, Channels: 1}

	time.Sleep(100 * time.Millisecond)

	if got := len(vadSession.ProcessFrameCalls); got < 1 {
		t.Errorf("VAD ProcessFrame calls = %d, want >= 1", got)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}
