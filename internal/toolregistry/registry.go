// Package toolregistry holds metadata for every tool known to the agent and
// scores free-text user utterances against that metadata to find the best
// matching tool. Grounded line-for-line on the original system's
// core/registry/tool_registry.py: the four scoring components (keyword
// overlap, description similarity, name similarity, category bonus) and
// their point budgets (40/30/20/10) are unchanged. Description/name
// similarity uses [github.com/antzucaro/matchr]'s Ratcliff/Obershelp
// implementation in place of Python's difflib.SequenceMatcher — the two
// algorithms are the same family (longest matching block recursion) so
// scores are comparable in spirit if not bit-identical.
package toolregistry

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// Metadata describes one registered tool for matching purposes.
type Metadata struct {
	Name            string
	Description     string
	Parameters      map[string]any
	RequiredParams  []string
	ActionKeywords  []string
	Category        string
}

// actionVerbs are scanned out of a tool's name and description to build its
// ActionKeywords when not supplied explicitly.
var actionVerbs = []string{
	"play", "pause", "stop", "skip", "search", "find", "get", "set",
	"add", "remove", "delete", "create", "send", "check", "show",
	"list", "queue", "like", "save", "open", "start", "resume",
}

var wordSplit = regexp.MustCompile(`[_\s]+`)

// NewMetadata builds [Metadata] for name/description/category, deriving
// ActionKeywords the same way the original extracts them: short tokens from
// the tool name, plus any action verb that appears in the description with
// a word boundary.
func NewMetadata(name, description, category string, params map[string]any, required []string) Metadata {
	m := Metadata{
		Name:           name,
		Description:    description,
		Category:       category,
		Parameters:     params,
		RequiredParams: required,
	}
	m.ActionKeywords = extractKeywords(m)
	return m
}

func extractKeywords(m Metadata) []string {
	seen := map[string]struct{}{}
	var keywords []string
	add := func(k string) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keywords = append(keywords, k)
		}
	}

	for _, part := range wordSplit.Split(strings.ToLower(m.Name), -1) {
		if len(part) > 2 {
			add(part)
		}
	}

	descLower := strings.ToLower(m.Description)
	for _, verb := range actionVerbs {
		if regexp.MustCompile(`\b` + regexp.QuoteMeta(verb) + `\b`).MatchString(descLower) {
			add(verb)
		}
	}
	return keywords
}

// categoryKeywords infers a category from a tool's name + description when
// none is supplied explicitly.
var categoryKeywords = map[string][]string{
	"music":         {"spotify", "music", "song", "track", "playlist", "play", "pause", "skip"},
	"weather":       {"weather", "temperature", "forecast", "climate"},
	"communication": {"email", "send", "message", "notify"},
	"search":        {"search", "find", "lookup", "query", "web"},
	"time":          {"time", "current", "now", "today", "clock"},
	"calendar":      {"calendar", "event", "appointment", "schedule", "meeting"},
	"alarms":        {"alarm", "alarms", "wake"},
	"reminders":     {"reminder", "reminders"},
	"memory":        {"remember", "recall", "memory", "store"},
	"notes":         {"note", "notes"},
}

// InferCategory returns the first matching category for name+description,
// or "general" when nothing matches.
func InferCategory(name, description string) string {
	text := strings.ToLower(name + " " + description)
	for _, cat := range orderedCategories {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(text, kw) {
				return cat
			}
		}
	}
	return "general"
}

// orderedCategories fixes iteration order for InferCategory so results are
// deterministic (Go map iteration order is randomized).
var orderedCategories = []string{
	"music", "weather", "communication", "search", "time",
	"calendar", "alarms", "reminders", "memory", "notes",
}

// Registry stores [Metadata] for every known tool and scores free text
// against it. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]Metadata
	categories map[string][]string
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		tools:      make(map[string]Metadata),
		categories: make(map[string][]string),
	}
}

// Register adds or replaces a tool's metadata.
func (r *Registry) Register(m Metadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.tools[m.Name]; ok {
		r.removeFromCategory(old.Category, m.Name)
	}
	r.tools[m.Name] = m
	if !contains(r.categories[m.Category], m.Name) {
		r.categories[m.Category] = append(r.categories[m.Category], m.Name)
	}
}

func (r *Registry) removeFromCategory(category, name string) {
	names := r.categories[category]
	for i, n := range names {
		if n == name {
			r.categories[category] = append(names[:i], names[i+1:]...)
			return
		}
	}
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Get returns a tool's metadata and whether it is registered.
func (r *Registry) Get(name string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.tools[name]
	return m, ok
}

// ByCategory returns every tool registered under category.
func (r *Registry) ByCategory(category string) []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.categories[category]
	out := make([]Metadata, 0, len(names))
	for _, n := range names {
		out = append(out, r.tools[n])
	}
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// All returns the metadata of every registered tool, in no particular order.
func (r *Registry) All() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Metadata, 0, len(r.tools))
	for _, m := range r.tools {
		out = append(out, m)
	}
	return out
}

// Match is a single scored candidate returned by [Registry.MatchTool].
type Match struct {
	Name  string
	Score float64
}

var wordRe = regexp.MustCompile(`\w+`)

// MatchTool scores every registered tool against userText and returns the
// topK highest-scoring matches in descending order. Scoring components:
// keyword overlap (0-40), description similarity (0-30), name similarity
// (0-20), category bonus (0-10).
func (r *Registry) MatchTool(userText string, topK int) []Match {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.tools) == 0 {
		return nil
	}

	userLower := strings.ToLower(userText)
	userWords := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(userLower, -1) {
		userWords[w] = struct{}{}
	}

	var matches []Match
	for name, m := range r.tools {
		score := 0.0

		keywordHits := 0
		for _, kw := range m.ActionKeywords {
			if _, ok := userWords[kw]; ok {
				keywordHits++
			}
		}
		score += min(float64(keywordHits)*10, 40)

		descSim := matchr.RatcliffObershelp(userLower, strings.ToLower(m.Description))
		score += descSim * 30

		nameClean := strings.ReplaceAll(strings.ToLower(m.Name), "_", " ")
		nameSim := matchr.RatcliffObershelp(userLower, nameClean)
		score += nameSim * 20

		if kws, ok := categoryKeywords[m.Category]; ok {
			for _, kw := range kws {
				if strings.Contains(userLower, kw) {
					score += 10
					break
				}
			}
		}

		if score > 0 {
			matches = append(matches, Match{Name: name, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// BestMatch returns the single highest-scoring tool name if its score meets
// minConfidence, or "" otherwise. minConfidence defaults to 20.0 in the
// original system's general routing path; callers that want the stricter
// classifier-triggered threshold should pass 50.0.
func (r *Registry) BestMatch(userText string, minConfidence float64) string {
	matches := r.MatchTool(userText, 1)
	if len(matches) > 0 && matches[0].Score >= minConfidence {
		return matches[0].Name
	}
	return ""
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
