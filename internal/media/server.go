// Package media serves stored attachment binaries over HTTP.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"startupconnect/internal/common"
	"startupconnect/internal/dbmongo"
)

// FileSource opens stored attachments. dbmongo.AttachmentStorage implements it.
type FileSource interface {
	Open(ctx context.Context, fileID string) (io.ReadCloser, *dbmongo.StoredFile, error)
}

type HTTPServer struct {
	files  FileSource
	router *mux.Router
}

func NewHTTPServer(files FileSource) *HTTPServer {
	s := &HTTPServer{files: files, router: mux.NewRouter()}
	s.Register(s.router)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	return s
}

// Register mounts GET /media/{fileId} on r.
func (s *HTTPServer) Register(r *mux.Router) {
	r.HandleFunc("/media/{fileId}", s.serveFile).Methods(http.MethodGet, http.MethodHead)
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *HTTPServer) serveFile(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["fileId"]
	if s.files == nil {
		http.Error(w, "Attachment storage is disabled", http.StatusServiceUnavailable)
		return
	}

	reader, file, err := s.files.Open(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		log.Printf("media: open %s: %v", fileID, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType(file))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", file.Size))
	if file.Filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": file.Filename}))
	}
	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("media: streaming %s: %v", fileID, err)
	}
}

func contentType(file *dbmongo.StoredFile) string {
	if file.MimeType != "" {
		return file.MimeType
	}
	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("media server is healthy"))
}
