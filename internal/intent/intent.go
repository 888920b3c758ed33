// Package intent classifies user utterances into a small set of intents
// using keyword and pattern matching rather than an LLM call, keeping the
// common-case routing latency off the model. Grounded line-for-line on the
// original system's intent_layer.py: the same resolution order (memory/
// identity check, greeting check, action-verb check, vague-request check,
// conversation default) and the same pattern/keyword sets.
package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Harsha2sai/Maya-One/internal/toolregistry"
)

// Type enumerates the intents a user turn can be classified as.
type Type string

const (
	TypeToolAction    Type = "tool_action"
	TypeConversation  Type = "conversation"
	TypeMemoryQuery   Type = "memory_query"
	TypeClarification Type = "clarification"
)

// Result is the outcome of classifying one user turn.
type Result struct {
	Type            Type
	Confidence      float64
	MatchedTool     string
	ExtractedParams map[string]any
	Reason          string
}

// actionVerbs mirrors ACTION_VERBS: verbs that suggest a tool call is needed.
var actionVerbs = map[string]struct{}{
	"play": {}, "pause": {}, "stop": {}, "skip": {}, "next": {}, "previous": {}, "resume": {},
	"search": {}, "find": {}, "look": {}, "lookup": {}, "get": {}, "fetch": {},
	"send": {}, "email": {}, "message": {}, "notify": {},
	"add": {}, "remove": {}, "delete": {}, "create": {}, "queue": {},
	"set": {}, "change": {}, "update": {}, "modify": {},
	"show": {}, "list": {}, "display": {}, "open": {},
	"check": {}, "tell": {}, "give": {},
}

// memoryKeywords mirrors MEMORY_KEYWORDS.
var memoryKeywords = []string{
	"my name", "who am i", "remember me", "my favorite", "my preference",
	"you know me", "about me", "my profile", "i told you", "i said",
}

var greetingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(hi|hello|hey|good\s+(morning|afternoon|evening)|howdy)`),
	regexp.MustCompile(`(?i)^(what'?s up|how are you|how'?s it going)`),
	regexp.MustCompile(`(?i)^(thanks?|thank you|bye|goodbye|see you)`),
}

var unclearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(do|can you|please|just|maybe|something)`),
	regexp.MustCompile(`(?i)^(it|that|this|the thing)`),
}

var identityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(what|who)\s*(is|am)\s*(my|i)`),
	regexp.MustCompile(`(?i)my\s+name`),
	regexp.MustCompile(`(?i)do you (know|remember)`),
	regexp.MustCompile(`(?i)you know (my|me|who)`),
}

// toolKeywords mirrors the category fallback table used when no action verb
// is present but a domain keyword still suggests a tool.
var toolKeywords = []struct {
	keyword  string
	category string
}{
	{"spotify", "music"},
	{"weather", "weather"},
	{"email", "communication"},
	{"song", "music"},
	{"track", "music"},
	{"playlist", "music"},
	{"temperature", "weather"},
}

// Classifier classifies user text against a [toolregistry.Registry].
type Classifier struct {
	registry *toolregistry.Registry
}

// New creates a Classifier backed by registry.
func New(registry *toolregistry.Registry) *Classifier {
	return &Classifier{registry: registry}
}

// Classify resolves the intent of userText, consulting memoryContext (the
// assembled memory snippet available for this turn, empty if none) for
// memory-query routing.
func (c *Classifier) Classify(userText, memoryContext string) Result {
	text := strings.ToLower(strings.TrimSpace(userText))

	if text == "" {
		return Result{Type: TypeClarification, Confidence: 1.0, Reason: "Empty input"}
	}

	if r, ok := c.checkMemoryQuery(text, memoryContext); ok {
		return r
	}
	if r, ok := c.checkGreeting(text); ok {
		return r
	}
	if r, ok := c.checkActionIntent(text); ok {
		return r
	}
	if r, ok := c.checkUnclear(text); ok {
		return r
	}

	return Result{
		Type:       TypeConversation,
		Confidence: 0.6,
		Reason:     "No specific intent detected, defaulting to conversation",
	}
}

func (c *Classifier) checkMemoryQuery(text, memoryContext string) (Result, bool) {
	for _, p := range identityPatterns {
		if p.MatchString(text) {
			if memoryContext != "" {
				return Result{Type: TypeMemoryQuery, Confidence: 0.9, Reason: "Identity/memory question with context available"}, true
			}
			return Result{Type: TypeConversation, Confidence: 0.8, Reason: "Identity question but no memory context"}, true
		}
	}

	for _, kw := range memoryKeywords {
		if strings.Contains(text, kw) {
			t := TypeConversation
			if memoryContext != "" {
				t = TypeMemoryQuery
			}
			return Result{Type: t, Confidence: 0.85, Reason: "Memory keyword detected: " + kw}, true
		}
	}

	return Result{}, false
}

func (c *Classifier) checkGreeting(text string) (Result, bool) {
	for _, p := range greetingPatterns {
		if p.MatchString(text) {
			return Result{Type: TypeConversation, Confidence: 0.95, Reason: "Greeting detected"}, true
		}
	}

	words := strings.Fields(text)
	if len(words) <= 2 && !containsAny(words, actionVerbs) {
		return Result{Type: TypeConversation, Confidence: 0.7, Reason: "Short conversational message"}, true
	}

	return Result{}, false
}

func (c *Classifier) checkActionIntent(text string) (Result, bool) {
	words := strings.Fields(text)
	var matchedVerb string
	for _, w := range words {
		if _, ok := actionVerbs[w]; ok {
			matchedVerb = w
			break
		}
	}

	if matchedVerb != "" {
		if best := c.registry.BestMatch(text, 50.0); best != "" {
			return Result{
				Type:        TypeToolAction,
				Confidence:  0.85,
				MatchedTool: best,
				Reason:      "Action verb '" + matchedVerb + "' + tool match: " + best,
			}, true
		}

		matches := c.registry.MatchTool(text, 3)
		if len(matches) > 0 && matches[0].Score > 40 {
			return Result{
				Type:        TypeToolAction,
				Confidence:  0.7,
				MatchedTool: matches[0].Name,
				Reason:      "Action verb detected, best guess: " + matches[0].Name,
			}, true
		}
	}

	for _, tk := range toolKeywords {
		if !strings.Contains(text, tk.keyword) {
			continue
		}
		tools := c.registry.ByCategory(tk.category)
		if len(tools) == 0 {
			continue
		}
		if best := c.registry.BestMatch(text, 20.0); best != "" {
			return Result{
				Type:        TypeToolAction,
				Confidence:  0.75,
				MatchedTool: best,
				Reason:      "Tool keyword '" + tk.keyword + "' detected",
			}, true
		}
		sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
		return Result{
			Type:        TypeToolAction,
			Confidence:  0.6,
			MatchedTool: tools[0].Name,
			Reason:      "Tool keyword '" + tk.keyword + "' detected, using category default",
		}, true
	}

	return Result{}, false
}

func (c *Classifier) checkUnclear(text string) (Result, bool) {
	words := strings.Fields(text)
	if len(words) > 3 {
		return Result{}, false
	}
	for _, p := range unclearPatterns {
		if p.MatchString(text) {
			return Result{Type: TypeClarification, Confidence: 0.7, Reason: "Vague request detected"}, true
		}
	}
	return Result{}, false
}

func containsAny(words []string, set map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

var (
	quotedStringRe = regexp.MustCompile(`"([^"]*)"`)
	emailRe        = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	weatherCityRe  = regexp.MustCompile(`(?i)(?:in|at|for)\s+(\w+(?:\s+\w+)?)`)
)

// emailParamNames is checked in order; the first parameter present on the
// tool receives the extracted email address.
var emailParamNames = []string{"to_email", "email", "recipient"}

// appControlPrefixes are stripped from the front of the utterance before
// isolating an application name, longest first so multi-word prefixes take
// priority over their single-word substrings.
var appControlPrefixes = []string{
	"could you", "would you", "can you",
	"open", "launch", "start", "run",
	"close", "stop", "quit", "kill", "exit",
	"please",
}

var appControlFillers = []string{"app", "application", "program", "browser"}

// ExtractParams pulls parameter values out of text for the matched tool,
// using the tool's declared parameter schema (param name -> {"type": ...})
// to decide where quoted strings and emails land.
func ExtractParams(text, toolName string, tool toolregistry.Metadata) map[string]any {
	params := map[string]any{}

	if quoted := quotedStringRe.FindAllStringSubmatch(text, -1); len(quoted) > 0 {
		for name, info := range tool.Parameters {
			if m, ok := info.(map[string]any); ok && m["type"] == "string" {
				params[name] = quoted[0][1]
				break
			}
		}
	}

	if emails := emailRe.FindAllString(text, -1); len(emails) > 0 {
		for _, name := range emailParamNames {
			if _, ok := tool.Parameters[name]; ok {
				params[name] = emails[0]
				break
			}
		}
	}

	if strings.Contains(strings.ToLower(toolName), "weather") {
		if m := weatherCityRe.FindStringSubmatch(text); m != nil {
			params["city"] = strings.Title(strings.ToLower(m[1]))
		}
	}

	if toolName == "open_app" || toolName == "close_app" {
		if appName := extractAppName(text); appName != "" {
			params["app_name"] = appName
		}
	}

	return params
}

func extractAppName(text string) string {
	clean := strings.ToLower(text)

	prefixes := append([]string(nil), appControlPrefixes...)
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, prefix := range prefixes {
		if strings.HasPrefix(clean, prefix) {
			clean = strings.TrimSpace(clean[len(prefix):])
		}
	}

	for _, filler := range appControlFillers {
		clean = strings.ReplaceAll(clean, " "+filler, "")
		clean = strings.ReplaceAll(clean, filler+" ", "")
	}

	return strings.TrimSpace(clean)
}
