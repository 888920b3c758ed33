// Package tokenserver implements the ambient HTTP service the browser/UI
// side of this system talks to directly: signing LiveKit-style room access
// tokens, accepting uploaded attachments, and managing the API key dotenv
// file the rest of the process reads its provider credentials from. This
// surface is out of the conversation core's scope but every deployment of
// it needs one, so it is built here the way the teacher builds its other
// HTTP surfaces (internal/health.Handler's Go 1.22 method-pattern routing).
package tokenserver

import (
	"net/http"
	"time"
)

// Config configures a Server.
type Config struct {
	// APIKey and APISecret sign and are embedded in issued room tokens,
	// mirroring LiveKit's access-token scheme.
	APIKey    string
	APISecret string

	// RoomURL is the websocket URL returned alongside a signed token so the
	// client knows where to dial.
	RoomURL string

	// TokenTTL is how long an issued token remains valid. Defaults to one
	// hour when zero.
	TokenTTL time.Duration

	// EnvFilePath is the dotenv file POST /api-keys persists accepted keys
	// to, in addition to the current process environment.
	EnvFilePath string

	// UploadDir is the directory POST /upload stores files under. Created
	// on first use if it does not exist.
	UploadDir string

	// MaxUploadBytes caps a single multipart upload. Defaults to 25 MiB
	// when zero.
	MaxUploadBytes int64
}

func (c Config) tokenTTL() time.Duration {
	if c.TokenTTL <= 0 {
		return time.Hour
	}
	return c.TokenTTL
}

func (c Config) maxUploadBytes() int64 {
	if c.MaxUploadBytes <= 0 {
		return 25 << 20
	}
	return c.MaxUploadBytes
}

// Server serves the token/config/upload HTTP surface described in spec §6.
type Server struct {
	cfg Config
}

// NewServer creates a Server from cfg.
func NewServer(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Handler returns the complete http.Handler for this service, with
// permissive CORS applied to every route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", s.handleToken)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api-keys", s.handleSetAPIKeys)
	mux.HandleFunc("GET /api-keys/status", s.handleAPIKeyStatus)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadDir))))
	return withCORS(mux)
}

// handleHealth reports liveness for the UI-facing surface. Distinct from
// internal/health's /healthz+/readyz pair, which gates the conversation
// core's own provider/memory dependencies rather than this HTTP service.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withCORS applies the permissive cross-origin policy spec §6 requires to
// every route: all origins, GET/POST/OPTIONS, preflight short-circuited.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
