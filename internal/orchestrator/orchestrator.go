// Package orchestrator routes a user turn through intent classification,
// optional knowledge lookup, tool execution, and a decision on whether the
// LLM still needs to respond. Grounded line-for-line on the original
// system's core/routing/router.py: the same RouteResult shape, the same
// >0.3-confidence knowledge-lookup gate, the same per-intent dispatch, and
// the same cycling clarification templates.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/Harsha2sai/Maya-One/internal/audiosession"
	"github.com/Harsha2sai/Maya-One/internal/governance"
	"github.com/Harsha2sai/Maya-One/internal/guardrails"
	"github.com/Harsha2sai/Maya-One/internal/intent"
	"github.com/Harsha2sai/Maya-One/internal/telemetry"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/alarmtool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/calendartool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/notetool"
	"github.com/Harsha2sai/Maya-One/internal/toolkit/remindertool"
	"github.com/Harsha2sai/Maya-One/internal/toolregistry"
)

// RouteResult is the outcome of routing one user turn.
type RouteResult struct {
	Handled      bool
	Response     string
	ToolExecuted string
	IntentType   intent.Type
	NeedsLLM     bool
	Err          string
}

// KnowledgeSource performs semantic lookup against a vector/knowledge
// store, grounded on the original system's core/intelligence/rag_engine.py.
// May be nil if no knowledge base is configured.
type KnowledgeSource interface {
	GetContext(ctx context.Context, query string) (string, error)
}

// Speaker renders text to speech over the currently attached audio
// session. Implementations typically push into a TTS provider proxy; may
// be nil if no audio session is attached yet.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// knowledgeConfidenceThreshold mirrors the original's 0.3 cutoff for
// bothering to query the knowledge source at all.
const knowledgeConfidenceThreshold = 0.3

var clarificationTemplates = []string{
	"I'd be happy to help! Could you tell me more about what you'd like to do?",
	"I want to make sure I understand. What would you like me to help with?",
	"Could you give me a bit more detail about what you're looking for?",
}

// Router routes turns for a single conversation.
type Router struct {
	classifier *intent.Classifier
	registry   *toolregistry.Registry
	executor   *governance.Executor
	knowledge  KnowledgeSource
	monitor    *telemetry.Monitor
	guard      *guardrails.Session

	mu                 sync.Mutex
	memoryContext      string
	clarificationIndex int
	session            audiosession.Session
	speaker            Speaker
}

// New creates a Router. knowledge and monitor may be nil.
func New(classifier *intent.Classifier, registry *toolregistry.Registry, executor *governance.Executor, knowledge KnowledgeSource, monitor *telemetry.Monitor, guard *guardrails.Session) *Router {
	return &Router{
		classifier: classifier,
		registry:   registry,
		executor:   executor,
		knowledge:  knowledge,
		monitor:    monitor,
		guard:      guard,
	}
}

// SetMemoryContext updates the memory context consulted for memory-query
// routing. Safe for concurrent use.
func (r *Router) SetMemoryContext(context string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memoryContext = context
}

// SetSession implements [conversation.Orchestrator]: it is handed the live
// audio session on every (re)connection and nil on every detach.
func (r *Router) SetSession(session audiosession.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session = session
}

// SetSpeaker wires a TTS-backed [Speaker] used for out-of-band
// announcements (e.g. reconnect notices) and friendly tool-error replies.
func (r *Router) SetSpeaker(s Speaker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speaker = s
}

// Speak implements [conversation.Orchestrator]: best-effort announcement,
// silent on failure since the underlying TTS path already degrades to
// silence rather than erroring.
func (r *Router) Speak(ctx context.Context, message string) {
	r.mu.Lock()
	speaker := r.speaker
	r.mu.Unlock()
	if speaker == nil {
		return
	}
	if err := speaker.Speak(ctx, message); err != nil {
		slog.Warn("announcement speak failed", "error", err)
	}
}

// Route classifies userText and dispatches it to the appropriate handler.
func (r *Router) Route(ctx context.Context, userText string, role governance.UserRole, userID string) RouteResult {
	r.mu.Lock()
	memoryContext := r.memoryContext
	r.mu.Unlock()

	result := r.classifier.Classify(userText, memoryContext)
	slog.Info("routed intent", "intent", result.Type, "confidence", result.Confidence)

	var knowledgeContext string
	if result.Confidence > knowledgeConfidenceThreshold && r.knowledge != nil {
		slog.Info("searching knowledge base", "query", userText)
		kc, err := r.knowledge.GetContext(ctx, userText)
		if err != nil {
			slog.Warn("knowledge lookup failed", "error", err)
		} else if kc != "" {
			slog.Info("found relevant knowledge")
			if r.monitor != nil {
				r.monitor.IncrementMemoryRetrievals()
			}
			knowledgeContext = kc
		}
	}

	switch result.Type {
	case intent.TypeToolAction:
		out := r.handleToolAction(ctx, userText, result, role, userID)
		if knowledgeContext != "" {
			out.Response = fmt.Sprintf("%s\n\n[Background Knowledge]:\n%s", out.Response, knowledgeContext)
		}
		return out

	case intent.TypeMemoryQuery:
		out := r.handleMemoryQuery(userText, result, memoryContext)
		if !out.Handled && knowledgeContext != "" {
			return RouteResult{
				Handled:    true,
				Response:   fmt.Sprintf("Based on what I know:\n%s", knowledgeContext),
				IntentType: result.Type,
				NeedsLLM:   true,
			}
		}
		return out

	case intent.TypeClarification:
		return r.handleClarification(result)

	default: // TypeConversation
		if knowledgeContext != "" {
			return RouteResult{
				Handled:    true,
				Response:   fmt.Sprintf("Here is some information I found:\n%s", knowledgeContext),
				IntentType: result.Type,
				NeedsLLM:   true,
			}
		}
		return RouteResult{Handled: false, NeedsLLM: true, IntentType: result.Type}
	}
}

func (r *Router) handleToolAction(ctx context.Context, userText string, result intent.Result, role governance.UserRole, userID string) RouteResult {
	if result.MatchedTool == "" {
		slog.Warn("tool action intent but no tool matched")
		return RouteResult{Handled: false, NeedsLLM: true, IntentType: result.Type, Err: "Could not determine which tool to use"}
	}

	tool, ok := r.registry.Get(result.MatchedTool)
	if !ok {
		slog.Error("matched tool not found in registry", "tool", result.MatchedTool)
		return RouteResult{Handled: false, NeedsLLM: true, IntentType: result.Type, Err: "Tool not available"}
	}

	if r.guard != nil && !guardrails.ToolSelectionPlausible(userText, result.MatchedTool) {
		slog.Warn("tool selection implausible, deferring to LLM", "tool", result.MatchedTool)
		return RouteResult{Handled: false, NeedsLLM: true, IntentType: result.Type, ToolExecuted: result.MatchedTool}
	}

	params := intent.ExtractParams(userText, result.MatchedTool, tool)

	var missing []string
	for _, p := range tool.RequiredParams {
		if _, ok := params[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		slog.Info("missing required params", "params", missing)
		return RouteResult{
			Handled:    true,
			Response:   fmt.Sprintf("I need a bit more info. What's the %s?", strings.ReplaceAll(missing[0], "_", " ")),
			IntentType: result.Type,
			NeedsLLM:   false,
		}
	}

	if r.executor == nil {
		return RouteResult{Handled: false, NeedsLLM: true, IntentType: result.Type, ToolExecuted: result.MatchedTool}
	}

	if r.guard != nil {
		if err := r.guard.RecordToolCall(); err != nil {
			return RouteResult{Handled: true, Response: "I've reached my limit for actions this session.", IntentType: result.Type, Err: err.Error()}
		}
	}

	slog.Info("executing tool", "tool", result.MatchedTool)
	if r.monitor != nil {
		r.monitor.IncrementToolCalls()
	}

	argsJSON, err := json.Marshal(params)
	if err != nil {
		return RouteResult{Handled: true, Response: "I encountered a problem while trying to perform that action.", IntentType: result.Type, Err: err.Error()}
	}

	out, err := r.executor.Execute(toolUserContext(ctx, userID), result.MatchedTool, params, string(argsJSON), role, userID)
	if err != nil {
		var denied *governance.DeniedError
		if errors.As(err, &denied) {
			slog.Warn("tool execution denied", "tool", result.MatchedTool, "reason", denied.Reason)
			return RouteResult{
				Handled:      true,
				Response:     "⛔ " + denied.Reason,
				ToolExecuted: result.MatchedTool,
				IntentType:   result.Type,
				Err:          denied.Reason,
				NeedsLLM:     false,
			}
		}
		slog.Error("tool execution failed", "tool", result.MatchedTool, "error", err)
		friendly := "I encountered a problem while trying to perform that action."
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "missing") && strings.Contains(lower, "argument") {
			friendly = "I seem to be missing some details to complete that request. Could you be more specific?"
		}
		return RouteResult{Handled: true, Response: friendly, IntentType: result.Type, Err: err.Error(), NeedsLLM: false}
	}

	return RouteResult{
		Handled:      true,
		Response:     out,
		ToolExecuted: result.MatchedTool,
		IntentType:   result.Type,
		NeedsLLM:     true,
	}
}

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)name\s+is\s+(\w+)`),
	regexp.MustCompile(`(?i)called\s+(\w+)`),
	regexp.MustCompile(`(?i)user'?s?\s+name[:\s]+(\w+)`),
}

func (r *Router) handleMemoryQuery(userText string, result intent.Result, memoryContext string) RouteResult {
	if memoryContext == "" {
		return RouteResult{Handled: false, NeedsLLM: true, IntentType: result.Type}
	}

	userLower := strings.ToLower(userText)
	if strings.Contains(userLower, "name") || strings.Contains(userLower, "who am i") {
		for _, p := range namePatterns {
			if m := p.FindStringSubmatch(memoryContext); m != nil {
				return RouteResult{
					Handled:    true,
					Response:   fmt.Sprintf("Your name is %s.", m[1]),
					IntentType: result.Type,
					NeedsLLM:   false,
				}
			}
		}
	}

	return RouteResult{Handled: false, NeedsLLM: true, IntentType: result.Type}
}

func (r *Router) handleClarification(result intent.Result) RouteResult {
	r.mu.Lock()
	response := clarificationTemplates[r.clarificationIndex]
	r.clarificationIndex = (r.clarificationIndex + 1) % len(clarificationTemplates)
	r.mu.Unlock()

	return RouteResult{
		Handled:    true,
		Response:   response,
		IntentType: result.Type,
		NeedsLLM:   false,
	}
}

// toolUserContext stamps userID into every per-package caller-identity key the
// stateful toolkits read from (each toolkit owns its own unexported context
// key, so there is no single shared one to set).
func toolUserContext(ctx context.Context, userID string) context.Context {
	ctx = alarmtool.WithUserID(ctx, userID)
	ctx = calendartool.WithUserID(ctx, userID)
	ctx = notetool.WithUserID(ctx, userID)
	ctx = remindertool.WithUserID(ctx, userID)
	return ctx
}
