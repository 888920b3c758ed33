package tokenserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newAPIKeyTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(Config{EnvFilePath: filepath.Join(t.TempDir(), ".env")})
}

func TestHandleSetAPIKeysAcceptsSimpleProvider(t *testing.T) {
	s := newAPIKeyTestServer(t)

	body, _ := json.Marshal(map[string]any{"apiKeys": map[string]any{"openai": "sk-abcdefgh12345678"}})
	req := httptest.NewRequest("POST", "/api-keys", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleSetAPIKeys(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := os.Getenv("OPENAI_API_KEY"); got != "sk-abcdefgh12345678" {
		t.Errorf("OPENAI_API_KEY = %q, want set", got)
	}

	persisted, err := os.ReadFile(s.cfg.EnvFilePath)
	if err != nil {
		t.Fatalf("read env file: %v", err)
	}
	if !bytes.Contains(persisted, []byte("OPENAI_API_KEY")) {
		t.Errorf("expected persisted env file to contain OPENAI_API_KEY, got %s", persisted)
	}
}

func TestHandleSetAPIKeysRejectsUnknownProvider(t *testing.T) {
	s := newAPIKeyTestServer(t)

	body, _ := json.Marshal(map[string]any{"apiKeys": map[string]any{"mystery": "value"}})
	req := httptest.NewRequest("POST", "/api-keys", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleSetAPIKeys(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleSetAPIKeysCompositeProviderRequiresAllSubKeys(t *testing.T) {
	s := newAPIKeyTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"apiKeys": map[string]any{
			"livekit": map[string]string{"url": "wss://lk.example"},
		},
	})
	req := httptest.NewRequest("POST", "/api-keys", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleSetAPIKeys(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d for incomplete composite provider", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleSetAPIKeysCompositeProviderAllSubKeysPresent(t *testing.T) {
	s := newAPIKeyTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"apiKeys": map[string]any{
			"livekit": map[string]string{
				"url":       "wss://lk.example",
				"apiKey":    "LKkey12345678",
				"apiSecret": "LKsecret12345678",
			},
		},
	})
	req := httptest.NewRequest("POST", "/api-keys", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleSetAPIKeys(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	for _, envVar := range []string{"LIVEKIT_URL", "LIVEKIT_API_KEY", "LIVEKIT_API_SECRET"} {
		if os.Getenv(envVar) == "" {
			t.Errorf("expected %s to be set", envVar)
		}
	}
}

func TestHandleAPIKeyStatusReportsConfiguredAndMasked(t *testing.T) {
	s := newAPIKeyTestServer(t)

	body, _ := json.Marshal(map[string]any{"apiKeys": map[string]any{"anthropic": "sk-ant-0123456789abcdef"}})
	setReq := httptest.NewRequest("POST", "/api-keys", bytes.NewReader(body))
	setRec := httptest.NewRecorder()
	s.handleSetAPIKeys(setRec, setReq)
	if setRec.Code != http.StatusOK {
		t.Fatalf("setup failed: %d %s", setRec.Code, setRec.Body.String())
	}

	req := httptest.NewRequest("GET", "/api-keys/status", nil)
	rec := httptest.NewRecorder()
	s.handleAPIKeyStatus(rec, req)

	var resp struct {
		Status map[string]bool   `json:"status"`
		Masked map[string]string `json:"masked"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Status["anthropic"] {
		t.Error("expected anthropic to be reported configured")
	}
	if resp.Masked["anthropic"] != "sk-a****cdef" {
		t.Errorf("masked value = %q, want %q", resp.Masked["anthropic"], "sk-a****cdef")
	}
}

func TestMaskValueShortValuesFullyMasked(t *testing.T) {
	if got := maskValue("short"); got != "****" {
		t.Errorf("maskValue(short) = %q, want ****", got)
	}
}
