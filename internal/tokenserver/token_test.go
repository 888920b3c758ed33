package tokenserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func newTestServer() *Server {
	return NewServer(Config{
		APIKey:    "test-key",
		APISecret: "test-secret",
		RoomURL:   "wss://room.example.com",
	})
}

func TestHandleTokenSignsAndReturnsURL(t *testing.T) {
	s := newTestServer()

	body, _ := json.Marshal(tokenRequest{RoomName: "lobby", ParticipantName: "player-1", Metadata: `{"role":"player"}`})
	req := httptest.NewRequest("POST", "/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.URL != "wss://room.example.com" {
		t.Errorf("url = %q, want %q", resp.URL, "wss://room.example.com")
	}
	if resp.Token == "" {
		t.Fatal("expected a non-empty signed token")
	}

	parsed, err := jwt.ParseWithClaims(resp.Token, &roomTokenClaims{}, func(*jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse signed token: %v", err)
	}
	claims := parsed.Claims.(*roomTokenClaims)
	if claims.Video.Room != "lobby" || claims.Subject != "player-1" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if !claims.Video.RoomJoin || !claims.Video.CanPublish || !claims.Video.CanSubscribe {
		t.Errorf("expected full room-join grant, got %+v", claims.Video)
	}
}

func TestHandleTokenMissingFieldsReturns400(t *testing.T) {
	s := newTestServer()

	body, _ := json.Marshal(tokenRequest{RoomName: "", ParticipantName: "player-1"})
	req := httptest.NewRequest("POST", "/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleTokenInvalidJSONReturns400(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("POST", "/token", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	s.handleToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
