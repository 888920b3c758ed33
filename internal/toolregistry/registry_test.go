package toolregistry

import "testing"

func weatherTool() Metadata {
	return NewMetadata(
		"get_weather",
		"Get the current weather and temperature forecast for a city",
		InferCategory("get_weather", "Get the current weather and temperature forecast for a city"),
		map[string]any{"city": map[string]any{"type": "string"}},
		[]string{"city"},
	)
}

func emailTool() Metadata {
	return NewMetadata(
		"send_email",
		"Send an email message to a recipient",
		InferCategory("send_email", "Send an email message to a recipient"),
		map[string]any{"to": map[string]any{"type": "string"}, "body": map[string]any{"type": "string"}},
		[]string{"to", "body"},
	)
}

func TestExtractKeywordsIncludesNamePartsAndVerbs(t *testing.T) {
	m := weatherTool()
	found := map[string]bool{}
	for _, k := range m.ActionKeywords {
		found[k] = true
	}
	if !found["weather"] {
		t.Fatalf("expected 'weather' in action keywords, got %v", m.ActionKeywords)
	}
	if !found["get"] {
		t.Fatalf("expected 'get' action verb in keywords, got %v", m.ActionKeywords)
	}
}

func TestInferCategory(t *testing.T) {
	if cat := InferCategory("get_weather", "current weather forecast"); cat != "weather" {
		t.Fatalf("expected weather category, got %s", cat)
	}
	if cat := InferCategory("mystery_tool", "does something nobody can name"); cat != "general" {
		t.Fatalf("expected general category fallback, got %s", cat)
	}
}

func TestMatchToolPrefersKeywordOverlap(t *testing.T) {
	r := New()
	r.Register(weatherTool())
	r.Register(emailTool())

	matches := r.MatchTool("what's the weather like in Paris", 2)
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if matches[0].Name != "get_weather" {
		t.Fatalf("expected get_weather to rank first, got %s (score %.1f)", matches[0].Name, matches[0].Score)
	}
}

func TestBestMatchRespectsMinConfidence(t *testing.T) {
	r := New()
	r.Register(weatherTool())
	r.Register(emailTool())

	if got := r.BestMatch("what's the weather in Paris", 20.0); got != "get_weather" {
		t.Fatalf("expected get_weather at low confidence threshold, got %q", got)
	}
	if got := r.BestMatch("asdkjaslkdj random gibberish", 50.0); got != "" {
		t.Fatalf("expected no match above high confidence threshold, got %q", got)
	}
}

func TestRegisterReplacesCategoryMembership(t *testing.T) {
	r := New()
	m := weatherTool()
	r.Register(m)
	m.Category = "general"
	r.Register(m)

	if len(r.ByCategory("weather")) != 0 {
		t.Fatal("expected tool removed from old category after re-register")
	}
	if len(r.ByCategory("general")) != 1 {
		t.Fatal("expected tool registered under new category")
	}
}

func TestCount(t *testing.T) {
	r := New()
	r.Register(weatherTool())
	r.Register(emailTool())
	if r.Count() != 2 {
		t.Fatalf("expected 2 registered tools, got %d", r.Count())
	}
}
