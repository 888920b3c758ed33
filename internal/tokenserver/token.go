package tokenserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenRequest is the POST /token body.
type tokenRequest struct {
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
	Metadata        string `json:"metadata"`
}

// tokenResponse is the POST /token success body.
type tokenResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// videoGrant mirrors LiveKit's room-join grant embedded in an access token.
type videoGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

type roomTokenClaims struct {
	jwt.RegisteredClaims
	Video    videoGrant `json:"video"`
	Metadata string     `json:"metadata,omitempty"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RoomName == "" || req.ParticipantName == "" {
		writeError(w, http.StatusBadRequest, "roomName and participantName are required")
		return
	}

	signed, err := s.signRoomToken(req.RoomName, req.ParticipantName, req.Metadata)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: signed, URL: s.cfg.RoomURL})
}

func (s *Server) signRoomToken(roomName, participantName, metadata string) (string, error) {
	now := time.Now()
	claims := roomTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.APIKey,
			Subject:   participantName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.tokenTTL())),
		},
		Video: videoGrant{
			Room:         roomName,
			RoomJoin:     true,
			CanPublish:   true,
			CanSubscribe: true,
		},
		Metadata: metadata,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.APISecret))
}
