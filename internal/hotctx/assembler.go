// Package hotctx assembles the always-injected "hot" context for every LLM
// turn in the conversation pipeline.
//
// The hot layer consists of two components fetched concurrently:
//
//  1. Subject identity snapshot from the knowledge graph (L3) — known facts
//     and relationships about the caller (or about the assistant persona
//     itself), when a graph is configured.
//  2. Recent session transcript from the session store (L1).
//
// Target assembly latency is < 50 ms. Use [FormatSystemPrompt] to convert a
// [HotContext] into a system prompt string ready for LLM injection.
package hotctx

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Harsha2sai/Maya-One/pkg/memory"
)

// ─────────────────────────────────────────────────────────────────────────────
// Public types
// ─────────────────────────────────────────────────────────────────────────────

// HotContext is the assembled context injected into every LLM prompt.
// All fields are optional — callers should check for nil/empty before using.
type HotContext struct {
	// Identity is the subject's knowledge-graph identity snapshot, or nil if
	// no graph is configured or the subject has no known entity.
	Identity *memory.NPCIdentity

	// RecentTranscript is the last N minutes of session conversation, capped at
	// the assembler's maxEntries setting.
	RecentTranscript []memory.TranscriptEntry

	// PreFetchResults contains speculatively pre-fetched cold-layer results that
	// were injected before assembly (e.g., from [PreFetcher]).
	PreFetchResults []memory.ContextResult

	// AssemblyDuration records how long [Assembler.Assemble] took.
	AssemblyDuration time.Duration
}

// ─────────────────────────────────────────────────────────────────────────────
// Assembler
// ─────────────────────────────────────────────────────────────────────────────

// Assembler concurrently fetches the hot-layer components and combines them
// into a [HotContext]. The knowledge graph is optional: when nil, identity
// lookup is skipped and only the recent transcript is assembled.
type Assembler struct {
	sessionStore   memory.SessionStore
	graph          memory.KnowledgeGraph
	recentDuration time.Duration
	maxEntries     int
}

// Option is a functional option for [NewAssembler].
type Option func(*Assembler)

// WithRecentDuration sets how far back in time [Assembler.Assemble] looks when
// fetching the recent session transcript. Defaults to 5 minutes.
func WithRecentDuration(d time.Duration) Option {
	return func(a *Assembler) { a.recentDuration = d }
}

// WithMaxTranscriptEntries caps the number of transcript entries included in
// [HotContext.RecentTranscript]. When the session store returns more than n
// entries the most-recent n are kept. Defaults to 50.
func WithMaxTranscriptEntries(n int) Option {
	return func(a *Assembler) { a.maxEntries = n }
}

// NewAssembler creates an [Assembler] with sensible defaults.
// Apply [Option] values to override the defaults. graph may be nil when no
// knowledge graph is configured, in which case identity is never populated.
func NewAssembler(sessionStore memory.SessionStore, graph memory.KnowledgeGraph, opts ...Option) *Assembler {
	a := &Assembler{
		sessionStore:   sessionStore,
		graph:          graph,
		recentDuration: 5 * time.Minute,
		maxEntries:     50,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble concurrently fetches the hot-layer components and returns a fully
// populated [HotContext].
//
// subjectID identifies the knowledge-graph entity to fetch identity for (the
// caller, or the assistant persona); it is ignored when no graph is
// configured. Both fetches run in parallel via errgroup. If any fetch
// returns an error, assembly is aborted and that error is returned — wrapped
// with a "hot context: " prefix.
//
// Assemble respects context cancellation on all underlying I/O calls.
func (a *Assembler) Assemble(ctx context.Context, subjectID string, sessionID string) (*HotContext, error) {
	start := time.Now()

	var (
		identity   *memory.NPCIdentity
		transcript []memory.TranscriptEntry
	)

	eg, egCtx := errgroup.WithContext(ctx)

	if a.graph != nil && subjectID != "" {
		eg.Go(func() error {
			snap, err := a.graph.IdentitySnapshot(egCtx, subjectID)
			if err != nil {
				return fmt.Errorf("hot context: identity snapshot for %q: %w", subjectID, err)
			}
			identity = snap
			return nil
		})
	}

	eg.Go(func() error {
		entries, err := a.sessionStore.GetRecent(egCtx, sessionID, a.recentDuration)
		if err != nil {
			return fmt.Errorf("hot context: get recent transcript for session %q: %w", sessionID, err)
		}
		// Truncate to the most-recent maxEntries entries.
		if len(entries) > a.maxEntries {
			entries = entries[len(entries)-a.maxEntries:]
		}
		transcript = entries
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &HotContext{
		Identity:         identity,
		RecentTranscript: transcript,
		AssemblyDuration: time.Since(start),
	}, nil
}
