package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a stored file doesn't exist.
var ErrNotFound = errors.New("upload: file not found")

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("upload: file too large")

// ErrTypeNotAllowed is returned when the detected type is not allowed.
var ErrTypeNotAllowed = errors.New("upload: file type not allowed")

// Store is the interface for upload storage backends.
type Store interface {
	// Put stores r under key.
	Put(ctx context.Context, key, contentType string, r io.Reader) (*File, error)

	// Open returns a stored file. The caller closes File.Reader.
	Open(ctx context.Context, key string) (*File, error)

	// Delete removes a stored file.
	Delete(ctx context.Context, key string) error

	// List returns every stored file, newest first, without readers.
	List(ctx context.Context) ([]*File, error)
}

// File represents an uploaded file.
type File struct {
	Key         string    `json:"key"`
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`

	// Reader provides access to the file contents, when opened.
	Reader io.ReadCloser `json:"-"`
}

// Close closes the file reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// Config holds configuration for the upload handler.
type Config struct {
	// MaxFileSize is the maximum allowed file size in bytes.
	// Default: 10MB.
	MaxFileSize int64

	// AllowedTypes is a list of allowed MIME types.
	// If empty, DefaultAllowedTypes is used.
	AllowedTypes []string
}

// DefaultAllowedTypes are the image types the editor accepts.
var DefaultAllowedTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize:  10 * 1024 * 1024, // 10MB
		AllowedTypes: DefaultAllowedTypes,
	}
}

// NewKey returns a random key with the extension of contentType.
func NewKey(contentType string) string {
	return uuid.New().String() + extensionFor(contentType)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// validKey rejects keys that could escape a store's namespace.
func validKey(key string) bool {
	return key != "" && key == path.Base(key) && !strings.HasPrefix(key, ".") && !strings.ContainsAny(key, `/\`)
}

// Handler returns an http.Handler for file uploads.
//
// The handler expects a multipart form with a "file" field and answers
// with the stored File as JSON.
func Handler(store Store, config *Config, logger *slog.Logger) http.Handler {
	if config == nil {
		config = DefaultConfig()
	}
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	allowed := config.AllowedTypes
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	if logger == nil {
		logger = slog.Default().With("component", "upload")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Limit the body before parsing; the multipart overhead gets 1MB.
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "No file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxSize {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}

		sniff := make([]byte, 512)
		n, err := io.ReadFull(file, sniff)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			http.Error(w, "Failed to read file", http.StatusBadRequest)
			return
		}
		contentType, _, _ := mime.ParseMediaType(http.DetectContentType(sniff[:n]))
		if !slices.Contains(allowed, contentType) {
			http.Error(w, ErrTypeNotAllowed.Error(), http.StatusUnsupportedMediaType)
			return
		}

		body := io.MultiReader(bytes.NewReader(sniff[:n]), file)
		stored, err := store.Put(r.Context(), NewKey(contentType), contentType, body)
		if err != nil {
			logger.Error("storing upload", "filename", header.Filename, "error", err)
			http.Error(w, "Upload failed", http.StatusInternalServerError)
			return
		}
		stored.Filename = header.Filename
		logger.Info("upload stored", "key", stored.Key, "size", stored.Size, "type", contentType)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(stored)
	})
}
