package intent

import (
	"testing"

	"github.com/Harsha2sai/Maya-One/internal/toolregistry"
)

func newTestRegistry() *toolregistry.Registry {
	r := toolregistry.New()
	r.Register(toolregistry.NewMetadata(
		"get_weather",
		"Get the current weather and temperature for a city",
		"weather",
		map[string]any{"city": map[string]any{"type": "string"}},
		[]string{"city"},
	))
	r.Register(toolregistry.NewMetadata(
		"send_email",
		"Send an email message to a recipient",
		"communication",
		map[string]any{"to_email": map[string]any{"type": "string"}, "body": map[string]any{"type": "string"}},
		[]string{"to_email", "body"},
	))
	return r
}

func TestClassifyEmptyInput(t *testing.T) {
	c := New(newTestRegistry())
	r := c.Classify("", "")
	if r.Type != TypeClarification || r.Confidence != 1.0 {
		t.Fatalf("expected clarification for empty input, got %+v", r)
	}
}

func TestClassifyGreeting(t *testing.T) {
	c := New(newTestRegistry())
	r := c.Classify("Hello there", "")
	if r.Type != TypeConversation {
		t.Fatalf("expected conversation for greeting, got %+v", r)
	}
}

func TestClassifyIdentityWithMemory(t *testing.T) {
	c := New(newTestRegistry())
	r := c.Classify("what is my name", "user previously said their name is Sam")
	if r.Type != TypeMemoryQuery {
		t.Fatalf("expected memory_query with context present, got %+v", r)
	}
}

func TestClassifyIdentityWithoutMemory(t *testing.T) {
	c := New(newTestRegistry())
	r := c.Classify("what is my name", "")
	if r.Type != TypeConversation {
		t.Fatalf("expected conversation fallback without memory context, got %+v", r)
	}
}

func TestClassifyActionIntentMatchesTool(t *testing.T) {
	c := New(newTestRegistry())
	r := c.Classify("check the weather in Boston", "")
	if r.Type != TypeToolAction || r.MatchedTool != "get_weather" {
		t.Fatalf("expected tool_action matched to get_weather, got %+v", r)
	}
}

func TestClassifyUnclear(t *testing.T) {
	c := New(newTestRegistry())
	r := c.Classify("do that thing", "")
	if r.Type != TypeClarification {
		t.Fatalf("expected clarification for vague request, got %+v", r)
	}
}

func TestExtractParamsWeatherCity(t *testing.T) {
	reg := newTestRegistry()
	tool, _ := reg.Get("get_weather")
	params := ExtractParams("what's the weather in Boston", "get_weather", tool)
	if params["city"] != "Boston" {
		t.Fatalf("expected city=Boston, got %+v", params)
	}
}

func TestExtractParamsEmail(t *testing.T) {
	reg := newTestRegistry()
	tool, _ := reg.Get("send_email")
	params := ExtractParams("send an email to jane@example.com", "send_email", tool)
	if params["to_email"] != "jane@example.com" {
		t.Fatalf("expected to_email extracted, got %+v", params)
	}
}

func TestExtractAppName(t *testing.T) {
	got := extractAppName("please open spotify app")
	if got != "spotify" {
		t.Fatalf("expected app_name 'spotify', got %q", got)
	}
}
