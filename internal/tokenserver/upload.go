package tokenserver

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type uploadResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.maxUploadBytes())
	if err := r.ParseMultipartForm(s.cfg.maxUploadBytes()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to prepare upload directory")
		return
	}

	// Prefix with a short UUID so concurrent uploads of the same filename
	// never collide while the original name stays recognisable.
	filename := uuid.NewString()[:8] + "-" + filepath.Base(header.Filename)
	dest, err := os.Create(filepath.Join(s.cfg.UploadDir, filename))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer dest.Close()

	size, err := io.Copy(dest, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Filename: filename,
		URL:      "/uploads/" + filename,
		Size:     size,
	})
}
