package tokenserver

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// providerSpec describes how one allow-listed provider's key material maps
// onto environment variables. subKeys is nil for providers accepted as a
// single string value; populated for composite providers accepted as a
// JSON object, in the same order as envVars.
type providerSpec struct {
	subKeys []string
	envVars []string
}

// allowedProviders is the fixed allow-list spec §6 requires: only these
// provider names are accepted by POST /api-keys. livekit and supabase are
// composite and require all of their sub-keys present together.
var allowedProviders = map[string]providerSpec{
	"openai":     {envVars: []string{"OPENAI_API_KEY"}},
	"anthropic":  {envVars: []string{"ANTHROPIC_API_KEY"}},
	"deepgram":   {envVars: []string{"DEEPGRAM_API_KEY"}},
	"elevenlabs": {envVars: []string{"ELEVENLABS_API_KEY"}},
	"livekit": {
		subKeys: []string{"url", "apiKey", "apiSecret"},
		envVars: []string{"LIVEKIT_URL", "LIVEKIT_API_KEY", "LIVEKIT_API_SECRET"},
	},
	"supabase": {
		subKeys: []string{"url", "anonKey", "serviceKey"},
		envVars: []string{"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_SERVICE_KEY"},
	},
}

type setAPIKeysRequest struct {
	APIKeys map[string]json.RawMessage `json:"apiKeys"`
	Config  map[string]any             `json:"config"`
}

func (s *Server) handleSetAPIKeys(w http.ResponseWriter, r *http.Request) {
	var req setAPIKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updates := make(map[string]string)
	for provider, raw := range req.APIKeys {
		spec, ok := allowedProviders[provider]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown provider: "+provider)
			return
		}

		if spec.subKeys == nil {
			var value string
			if err := json.Unmarshal(raw, &value); err != nil {
				writeError(w, http.StatusBadRequest, provider+": expected a string value")
				return
			}
			updates[spec.envVars[0]] = value
			continue
		}

		var fields map[string]string
		if err := json.Unmarshal(raw, &fields); err != nil {
			writeError(w, http.StatusBadRequest, provider+": expected an object value")
			return
		}
		for i, sub := range spec.subKeys {
			value, ok := fields[sub]
			if !ok {
				writeError(w, http.StatusBadRequest, provider+": requires all of "+strings.Join(spec.subKeys, ", "))
				return
			}
			updates[spec.envVars[i]] = value
		}
	}

	if err := s.persistEnv(updates); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist keys")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// persistEnv merges updates into the dotenv file at s.cfg.EnvFilePath and
// sets each value in the current process environment so already-loaded
// provider clients can pick up changes via a reload.
func (s *Server) persistEnv(updates map[string]string) error {
	existing, err := godotenv.Read(s.cfg.EnvFilePath)
	if err != nil {
		existing = make(map[string]string)
	}
	for k, v := range updates {
		existing[k] = v
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return godotenv.Write(existing, s.cfg.EnvFilePath)
}

func (s *Server) handleAPIKeyStatus(w http.ResponseWriter, _ *http.Request) {
	status := make(map[string]bool, len(allowedProviders))
	masked := make(map[string]string, len(allowedProviders))

	for provider, spec := range allowedProviders {
		configured := true
		var secretValue string
		for _, envVar := range spec.envVars {
			v := os.Getenv(envVar)
			if v == "" {
				configured = false
			}
			secretValue = v
		}
		status[provider] = configured
		if configured {
			masked[provider] = maskValue(secretValue)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": status, "masked": masked})
}

func maskValue(v string) string {
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "****" + v[len(v)-4:]
}
