// Package app wires every collaborator (providers, governance, memory,
// telemetry, transport) into one running assistant instance. Grounded on
// the teacher's internal/app.App construction order - init memory, init
// tool host, init mixer, init the conversation loop - collapsed from a
// per-NPC agent roster down to the single always-on voice assistant this
// system serves.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/Harsha2sai/Maya-One/internal/audiosession"
	"github.com/Harsha2sai/Maya-One/internal/chaos"
	"github.com/Harsha2sai/Maya-One/internal/config"
	"github.com/Harsha2sai/Maya-One/internal/conversation"
	"github.com/Harsha2sai/Maya-One/internal/governance"
	"github.com/Harsha2sai/Maya-One/internal/guardrails"
	"github.com/Harsha2sai/Maya-One/internal/health"
	"github.com/Harsha2sai/Maya-One/internal/hotctx"
	"github.com/Harsha2sai/Maya-One/internal/intent"
	"github.com/Harsha2sai/Maya-One/internal/mcp"
	"github.com/Harsha2sai/Maya-One/internal/mcp/mcphost"
	"github.com/Harsha2sai/Maya-One/internal/mcp/tools"
	"github.com/Harsha2sai/Maya-One/internal/memorymgr"
	"github.com/Harsha2sai/Maya-One/internal/observe"
	"github.com/Harsha2sai/Maya-One/internal/orchestrator"
	"github.com/Harsha2sai/Maya-One/internal/preflight"
	"github.com/Harsha2sai/Maya-One/internal/providerproxy"
	"github.com/Harsha2sai/Maya-One/internal/session"
	"github.com/Harsha2sai/Maya-One/internal/smartllm"
	"github.com/Harsha2sai/Maya-One/internal/supervisor"
	"github.com/Harsha2sai/Maya-One/internal/telemetry"
	"github.com/Harsha2sai/Maya-One/internal/tokenserver"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/alarmtool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/apptool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/calendartool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/datetimetool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/emailtool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/notetool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/remindertool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/weathertool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/websearchtool"
	"github.com/Harsha2sai/Maya-One/internal/toolregistry"
	"github.com/Harsha2sai/Maya-One/internal/transport"
	"github.com/Harsha2sai/Maya-One/internal/transport/discordroom"
	"github.com/Harsha2sai/Maya-One/pkg/audio"
	"github.com/Harsha2sai/Maya-One/pkg/audio/mixer"
	"github.com/Harsha2sai/Maya-One/pkg/memory"
	memmock "github.com/Harsha2sai/Maya-One/pkg/memory/mock"
	"github.com/Harsha2sai/Maya-One/pkg/memory/postgres"
	"github.com/Harsha2sai/Maya-One/pkg/provider/embeddings"
	"github.com/Harsha2sai/Maya-One/pkg/provider/llm"
	"github.com/Harsha2sai/Maya-One/pkg/provider/stt"
	"github.com/Harsha2sai/Maya-One/pkg/provider/tts"
	"github.com/Harsha2sai/Maya-One/pkg/provider/vad"
	"github.com/Harsha2sai/Maya-One/pkg/types"
)

// assistantPersona is the system-prompt persona injected on every turn.
// Unlike the teacher's per-NPC persona text sourced from campaign config,
// this system serves one assistant, so the persona is fixed.
const assistantPersona = "You are a helpful, concise voice assistant. " +
	"You can answer questions directly and you can use tools to manage " +
	"alarms, reminders, notes, calendar events, and more when asked."

// assistantSubjectID is the knowledge-graph entity ID assembled for every
// turn's hot context. A single-assistant deployment has exactly one
// identity worth tracking continuity for.
const assistantSubjectID = "assistant"

// Providers bundles the concrete backend implementations selected by
// configuration. Only LLM is required; the rest may be nil when the
// corresponding feature is unused (e.g. Audio is nil in a text-only
// deployment).
type Providers struct {
	LLM        llm.Provider
	STT        stt.Provider
	TTS        tts.Provider
	Embeddings embeddings.Provider
	VAD        vad.Engine
	Audio      audio.Platform
}

// Option configures an App during construction, primarily to let tests
// substitute mocks for the pieces New would otherwise build itself.
type Option func(*App)

// WithSessionStore overrides the L1 transcript store New would otherwise
// build from cfg.Memory.
func WithSessionStore(store memory.SessionStore) Option {
	return func(a *App) { a.sessionStore = store }
}

// WithKnowledgeGraph overrides the L3 knowledge graph / GraphRAG querier
// New would otherwise build from cfg.Memory.
func WithKnowledgeGraph(graph memory.GraphRAGQuerier) Option {
	return func(a *App) { a.graphQuerier = graph }
}

// WithMCPHost overrides the tool host New would otherwise construct via
// [mcphost.New].
func WithMCPHost(host mcp.Host) Option {
	return func(a *App) { a.mcpHost = host }
}

// WithMixerFactory overrides how the per-connection priority mixer is
// constructed; primarily useful in tests that want to observe or fake
// mixed audio output.
func WithMixerFactory(factory func(output func([]byte)) audio.Mixer) Option {
	return func(a *App) { a.mixerFactory = factory }
}

// WithRoomTransport overrides the chat-room transport (e.g. to inject a
// fake transport in tests instead of dialing Discord).
func WithRoomTransport(t transport.RoomTransport) Option {
	return func(a *App) { a.roomTransport = t }
}

// App holds every long-lived collaborator for one running assistant
// instance and coordinates their startup and shutdown.
type App struct {
	cfg       config.Config
	providers *Providers

	monitor    *telemetry.Monitor
	obs        *observe.Metrics
	chaosBoard *chaos.Switchboard
	supervisor *supervisor.Supervisor

	pgStore      *postgres.Store
	sessionStore memory.SessionStore
	graphQuerier memory.GraphRAGQuerier
	memGuard     *session.MemoryGuard
	assembler    *hotctx.Assembler
	memMgr       *memorymgr.Manager

	mcpHost      mcp.Host
	toolRegistry *toolregistry.Registry
	classifier   *intent.Classifier
	execGate     *governance.ExecutionGate
	executor     *governance.Executor
	guard        *guardrails.Session

	conv         *conversation.Session
	router       *orchestrator.Router
	audioMgr     *audiosession.Manager
	mixerFactory func(output func([]byte)) audio.Mixer

	roomTransport transport.RoomTransport
	tokenServer   *tokenserver.Server
	healthHandler *health.Handler

	closers  []func() error
	stopOnce sync.Once
}

// New builds every collaborator needed to run the assistant: memory
// layers, the MCP tool host (seeded with all built-in toolkits), the
// governance/intent/orchestrator stack, and - when the Discord token and
// chat channel are configured - the chat transport. The voice session is
// not built here; [App.Run] starts it. Options let callers substitute
// individual collaborators (mainly for tests).
func New(ctx context.Context, cfg config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil {
		return nil, fmt.Errorf("app: an LLM provider is required")
	}

	obs := observe.DefaultMetrics()

	a := &App{
		cfg:          cfg,
		providers:    providers,
		monitor:      telemetry.NewMonitor(obs),
		obs:          obs,
		chaosBoard:   chaos.NewSwitchboard(),
		mixerFactory: func(output func([]byte)) audio.Mixer { return mixer.New(output) },
	}
	a.chaosBoard.LoadFromEnv()
	a.supervisor = supervisor.New(a.monitor)

	for _, o := range opts {
		o(a)
	}

	if err := a.initMemory(ctx); err != nil {
		return nil, err
	}
	if err := a.initTools(ctx); err != nil {
		return nil, err
	}
	a.initGovernance()
	a.initGuardrails()
	a.initOrchestrator()

	if err := a.initTransport(ctx); err != nil {
		return nil, err
	}
	a.initTokenServer()
	a.initHealth()

	return a, nil
}

// initMemory sets up the L1 session store and L3 knowledge graph. When
// cfg.Memory.PostgresDSN is configured it provisions a real Postgres-backed
// [postgres.Store]; otherwise it falls back to the in-process mock store
// (the same type test suites use), which is a legitimate degraded-mode
// choice since [session.MemoryGuard] requires a non-nil backing store.
func (a *App) initMemory(ctx context.Context) error {
	if a.sessionStore == nil || a.graphQuerier == nil {
		if a.cfg.Memory.PostgresDSN != "" {
			dims := a.cfg.Memory.EmbeddingDimensions
			if dims <= 0 {
				dims = 1536
			}
			store, err := postgres.NewStore(ctx, a.cfg.Memory.PostgresDSN, dims)
			if err != nil {
				return fmt.Errorf("app: connect memory store: %w", err)
			}
			a.pgStore = store
			a.closers = append(a.closers, func() error { store.Close(); return nil })
			if a.sessionStore == nil {
				a.sessionStore = store.L1()
			}
			if a.graphQuerier == nil {
				a.graphQuerier = store
			}
		} else {
			slog.Warn("app: no memory.postgres_dsn configured, running with in-process memory only")
			if a.sessionStore == nil {
				a.sessionStore = &memmock.SessionStore{}
			}
		}
	}

	a.memGuard = session.NewMemoryGuard(a.sessionStore)

	var graph memory.KnowledgeGraph
	if a.graphQuerier != nil {
		graph = a.graphQuerier
	}
	a.assembler = hotctx.NewAssembler(a.memGuard, graph)

	var summarizer memorymgr.Summarizer
	if a.providers.LLM != nil {
		summarizer = memorymgr.NewLLMSummarizer(a.providers.LLM)
	}
	a.memMgr = memorymgr.New(a.memGuard, summarizer, a.chaosBoard)

	return nil
}

// builtinToolkits lists every in-process toolkit package's [tools.Tool]
// constructor. Each is invoked with a nil store/fetcher so it falls back
// to its own in-memory or deterministic stand-in; a real deployment would
// thread durable stores and live fetchers through here instead.
func builtinToolkits() []tools.Tool {
	var all []tools.Tool
	all = append(all, alarmtool.Tools(nil)...)
	all = append(all, calendartool.Tools(nil)...)
	all = append(all, notetool.Tools(nil)...)
	all = append(all, remindertool.Tools(nil)...)
	all = append(all, datetimetool.Tools()...)
	all = append(all, apptool.Tools(nil)...)
	all = append(all, emailtool.Tools(nil)...)
	all = append(all, weathertool.Tools(nil)...)
	all = append(all, websearchtool.Tools(nil)...)
	return all
}

// initTools builds the MCP host (seeded with every built-in toolkit plus
// any externally configured MCP servers) and the tool registry used for
// intent matching.
func (a *App) initTools(ctx context.Context) error {
	if a.mcpHost == nil {
		host := mcphost.New()
		a.mcpHost = host
		a.closers = append(a.closers, host.Close)
	}

	a.toolRegistry = toolregistry.New()

	for _, t := range builtinToolkits() {
		required := requiredParams(t.Definition)
		category := toolregistry.InferCategory(t.Definition.Name, t.Definition.Description)
		a.toolRegistry.Register(toolregistry.NewMetadata(
			t.Definition.Name, t.Definition.Description, category, t.Definition.Parameters, required,
		))

		if host, ok := a.mcpHost.(*mcphost.Host); ok {
			if err := host.RegisterBuiltin(mcphost.BuiltinTool{
				Definition:  t.Definition,
				Handler:     t.Handler,
				DeclaredP50: t.DeclaredP50,
				DeclaredMax: t.DeclaredMax,
			}); err != nil {
				return fmt.Errorf("app: register builtin tool %q: %w", t.Definition.Name, err)
			}
		}
	}

	for _, server := range a.cfg.MCP.Servers {
		if err := a.mcpHost.RegisterServer(ctx, mcp.ServerConfig{
			Name:      server.Name,
			Transport: server.Transport,
			Command:   server.Command,
			URL:       server.URL,
			Env:       server.Env,
		}); err != nil {
			return fmt.Errorf("app: register mcp server %q: %w", server.Name, err)
		}
	}
	for _, def := range a.mcpHost.AvailableTools(types.BudgetDeep) {
		if _, ok := a.toolRegistry.Get(def.Name); ok {
			continue
		}
		required := requiredParams(def)
		category := toolregistry.InferCategory(def.Name, def.Description)
		a.toolRegistry.Register(toolregistry.NewMetadata(def.Name, def.Description, category, def.Parameters, required))
	}

	return nil
}

// requiredParams extracts the "required" JSON-schema entry from a tool's
// parameter schema, the same shape every built-in toolkit package emits.
func requiredParams(def types.ToolDefinition) []string {
	if def.Parameters == nil {
		return nil
	}
	switch req := def.Parameters["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, v := range req {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// initGovernance builds the risk policy, execution gate, audit logger, and
// executor that gate every tool call, applying cfg.Governance overrides on
// top of the built-in defaults.
func (a *App) initGovernance() {
	policy := governance.NewToolRiskPolicy()
	for name, level := range a.cfg.Governance.ToolRiskOverrides {
		policy.Register(name, parseRiskLevel(level))
	}

	a.execGate = governance.NewExecutionGate(policy)
	audit := governance.NewAuditLogger()

	runTool := func(ctx context.Context, toolName, argsJSON string) (string, error) {
		result, err := a.mcpHost.ExecuteTool(ctx, toolName, argsJSON)
		if err != nil {
			return "", err
		}
		if result.IsError {
			return "", fmt.Errorf("%s", result.Content)
		}
		return result.Content, nil
	}

	a.executor = governance.NewExecutor(a.execGate, audit, runTool, a.chaosBoard, a.obs)
}

// initGuardrails builds the turn/tool-call/error budget guard, applying
// cfg.Guardrails overrides on top of [guardrails.DefaultLimits].
func (a *App) initGuardrails() {
	limits := guardrails.DefaultLimits()
	if a.cfg.Guardrails.MaxTurns > 0 {
		limits.MaxTurns = a.cfg.Guardrails.MaxTurns
	}
	if a.cfg.Guardrails.MaxToolCalls > 0 {
		limits.MaxToolCalls = a.cfg.Guardrails.MaxToolCalls
	}
	if a.cfg.Guardrails.MaxConsecutiveErrors > 0 {
		limits.MaxConsecutiveErrors = a.cfg.Guardrails.MaxConsecutiveErrors
	}
	a.guard = guardrails.NewSession(limits)
}

// graphKnowledgeSource adapts [memory.GraphRAGQuerier] to
// [orchestrator.KnowledgeSource], flattening context results into the
// plain-text shape the router prepends to its response.
type graphKnowledgeSource struct {
	querier memory.GraphRAGQuerier
}

func (g *graphKnowledgeSource) GetContext(ctx context.Context, query string) (string, error) {
	results, err := g.querier.QueryWithContext(ctx, query, nil)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "- %s\n", r.Content)
	}
	return sb.String(), nil
}

func (a *App) initOrchestrator() {
	a.classifier = intent.New(a.toolRegistry)

	var knowledge orchestrator.KnowledgeSource
	if a.graphQuerier != nil {
		knowledge = &graphKnowledgeSource{querier: a.graphQuerier}
	}

	a.router = orchestrator.New(a.classifier, a.toolRegistry, a.executor, knowledge, a.monitor, a.guard)

	a.conv = conversation.New(a.sessionID(), a.supervisor)
	a.conv.RegisterOrchestrator(a.router)
}

// contextBuilder closes over the App's assembler and MCP host to satisfy
// [smartllm.ContextBuilder]: every LLM turn gets the assembled hot context
// as its system prompt and the currently available tool catalogue.
func (a *App) contextBuilder(ctx context.Context, _ string) (string, []types.ToolDefinition, error) {
	hctx, err := a.assembler.Assemble(ctx, assistantSubjectID, a.sessionID())
	if err != nil {
		return "", nil, err
	}
	prompt := hotctx.FormatSystemPrompt(hctx, assistantPersona)
	toolList := a.mcpHost.AvailableTools(types.BudgetStandard)
	return prompt, toolList, nil
}

func (a *App) sessionID() string {
	if a.cfg.Transport.Discord.GuildID != "" {
		return a.cfg.Transport.Discord.GuildID
	}
	return "default-session"
}

func parseRiskLevel(s string) governance.RiskLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "READ_ONLY", "READONLY":
		return governance.RiskReadOnly
	case "LOW":
		return governance.RiskLow
	case "MEDIUM":
		return governance.RiskMedium
	case "HIGH":
		return governance.RiskHigh
	case "CRITICAL":
		return governance.RiskCritical
	default:
		return governance.RiskHigh
	}
}

func parseUserRole(s string) governance.UserRole {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADMIN":
		return governance.RoleAdmin
	case "TRUSTED":
		return governance.RoleTrusted
	case "USER":
		return governance.RoleUser
	default:
		return governance.RoleGuest
	}
}

func (a *App) roleForUser(userID string) governance.UserRole {
	if role, ok := a.cfg.Governance.RoleAssignments[userID]; ok {
		return parseUserRole(role)
	}
	if a.cfg.Governance.DefaultRole == "" {
		return governance.RoleUser
	}
	return parseUserRole(a.cfg.Governance.DefaultRole)
}

// Run starts the assistant's background machinery: preflight checks, the
// provider supervisor, and (if configured) the voice-channel audio
// session. Failed preflight checks are logged and startup continues. It
// blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	checks := []health.Checker{
		preflight.LLMConnectivityCheck(a.providers.LLM),
		preflight.ToolSchemaCheck(a.toolRegistry),
		preflight.ChatContextCheck(),
		preflight.MemoryLayerCheck(a.sessionStore),
	}
	if a.providers.STT != nil {
		checks = append(checks, preflight.STTFactoryCheck(a.providers.STT))
	}
	if a.providers.TTS != nil {
		checks = append(checks, preflight.TTSFactoryCheck(a.providers.TTS, types.VoiceProfile{}))
	}
	if ok, results := preflight.Run(ctx, checks...); !ok {
		for _, r := range results {
			if !r.Passed {
				slog.Warn("app: preflight check failed", "check", r.Name, "message", r.Message)
			}
		}
	}

	a.supervisor.Start(ctx)

	if a.providers.Audio != nil && a.cfg.Transport.Discord.VoiceChannelID != "" {
		a.startAudioSession(ctx)
	}

	<-ctx.Done()
	return ctx.Err()
}

// startAudioSession wires the STT/TTS provider pair behind supervisor
// proxies, builds a [VoiceSession], and runs it under [audiosession.Manager]
// so a session whose Start returns an error (e.g. a failed connect) is
// restarted with backoff. A panic inside the session is not recovered.
func (a *App) startAudioSession(ctx context.Context) {
	sttProvider := stt.Provider(providerproxy.NewSTTProxy(a.providers.STT, a.supervisor, func(ctx context.Context) (stt.Provider, error) {
		return a.providers.STT, nil
	}, a.obs))
	ttsProvider := tts.Provider(providerproxy.NewTTSProxy(a.providers.TTS, a.supervisor, func(ctx context.Context) (tts.Provider, error) {
		return a.providers.TTS, nil
	}, a.obs))

	smart := smartllm.New(a.providers.LLM, a.contextBuilder, a.chaosBoard, a.monitor)

	reconnector := session.NewReconnector(session.ReconnectorConfig{
		Platform:  a.providers.Audio,
		ChannelID: a.cfg.Transport.Discord.VoiceChannelID,
	})

	factory := func(ctx context.Context) (audiosession.Session, error) {
		return newVoiceSession(voiceSessionConfig{
			reconnector: reconnector,
			vadEngine:   a.providers.VAD,
			sttProvider: sttProvider,
			ttsProvider: ttsProvider,
			llmProvider: smart,
			mixerOutput: a.mixerFactory,
			router:      a.router,
			guard:       a.guard,
			monitor:     a.monitor,
			memGuard:    a.memGuard,
			roleFor:     a.roleForUser,
			sessionID:   a.sessionID(),
			roomTransport: a.roomTransport,
		}), nil
	}

	a.audioMgr = audiosession.New(factory, a.conv, func(ctx context.Context, s audiosession.Session) {
		slog.Info("app: voice session connected")
	})
	go a.audioMgr.Run(ctx)
}

// initTransport connects the Discord chat-room transport when configured.
// Audio and chat are independent: a deployment can run text-only (no
// Discord.VoiceChannelID) or voice-only (no Discord.ChatChannelID).
func (a *App) initTransport(ctx context.Context) error {
	if a.roomTransport != nil {
		return nil
	}
	if a.cfg.Transport.Discord.Token == "" || a.cfg.Transport.Discord.ChatChannelID == "" {
		return nil
	}
	t, err := discordroom.New(ctx, discordroom.Config{
		Token:         a.cfg.Transport.Discord.Token,
		GuildID:       a.cfg.Transport.Discord.GuildID,
		ChatChannelID: a.cfg.Transport.Discord.ChatChannelID,
	})
	if err != nil {
		return fmt.Errorf("app: connect chat transport: %w", err)
	}
	a.roomTransport = t
	a.closers = append(a.closers, t.Close)
	return nil
}

func (a *App) initTokenServer() {
	if a.cfg.TokenHTTP.ListenAddr == "" {
		return
	}
	a.tokenServer = tokenserver.NewServer(tokenserver.Config{
		ListenAddr:      a.cfg.TokenHTTP.ListenAddr,
		APIKey:          a.cfg.TokenHTTP.APIKey,
		APISecret:       a.cfg.TokenHTTP.APISecret,
		RoomURL:         a.cfg.TokenHTTP.RoomURL,
		TokenTTLSeconds: a.cfg.TokenHTTP.TokenTTLSeconds,
		EnvFilePath:     a.cfg.TokenHTTP.EnvFilePath,
		UploadDir:       a.cfg.TokenHTTP.UploadDir,
		MaxUploadBytes:  a.cfg.TokenHTTP.MaxUploadBytes,
	})
}

func (a *App) initHealth() {
	a.healthHandler = health.New(
		health.Checker{Name: "memory", Check: func(ctx context.Context) error {
			_, err := a.sessionStore.GetRecent(ctx, a.sessionID(), 0)
			return err
		}},
	)
}

// TokenServer returns the token HTTP server, or nil if cfg.TokenHTTP was
// not configured.
func (a *App) TokenServer() *tokenserver.Server { return a.tokenServer }

// TokenServerHandler returns the token server's HTTP handler wrapped with
// the OTel tracing/metrics middleware, or nil if cfg.TokenHTTP was not
// configured.
func (a *App) TokenServerHandler() http.Handler {
	if a.tokenServer == nil {
		return nil
	}
	return observe.Middleware(a.obs)(a.tokenServer.Handler())
}

// HealthHandler returns the readiness/liveness handler built from this
// App's collaborators.
func (a *App) HealthHandler() *health.Handler { return a.healthHandler }

// Shutdown tears down every collaborator in reverse registration order.
// Safe to call more than once; only the first call has effect.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	a.stopOnce.Do(func() {
		if a.audioMgr != nil {
			a.audioMgr.Stop()
		}
		a.supervisor.Stop()
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
