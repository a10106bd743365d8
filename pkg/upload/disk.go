package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DiskStore stores uploads on the local filesystem, each file next to a
// ".meta" JSON sidecar.
type DiskStore struct {
	dir       string
	urlPrefix string
}

type diskMeta struct {
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDiskStore creates a DiskStore rooted at dir whose files are linked
// as urlPrefix+key.
func NewDiskStore(dir, urlPrefix string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &DiskStore{dir: dir, urlPrefix: urlPrefix}, nil
}

// Dir returns the storage directory.
func (s *DiskStore) Dir() string { return s.dir }

// Put writes r to dir/key.
func (s *DiskStore) Put(ctx context.Context, key, contentType string, r io.Reader) (*File, error) {
	if !validKey(key) {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := filepath.Join(s.dir, key)
	f, err := os.Create(p)
	if err != nil {
		return nil, err
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(p)
		return nil, err
	}

	meta := diskMeta{ContentType: contentType, Size: written, CreatedAt: time.Now().UTC()}
	if err := s.saveMeta(key, meta); err != nil {
		os.Remove(p)
		return nil, err
	}
	return s.file(key, meta), nil
}

// Open opens dir/key for reading.
func (s *DiskStore) Open(_ context.Context, key string) (*File, error) {
	if !validKey(key) {
		return nil, ErrNotFound
	}
	meta, err := s.loadMeta(key)
	if err != nil {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	file := s.file(key, meta)
	file.Reader = f
	return file, nil
}

// Delete removes dir/key and its metadata.
func (s *DiskStore) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, key))
	os.Remove(s.metaPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// List returns the stored files, newest first.
func (s *DiskStore) List(_ context.Context) ([]*File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var files []*File
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".meta") {
			continue
		}
		meta, err := s.loadMeta(name)
		if err != nil {
			continue
		}
		files = append(files, s.file(name, meta))
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})
	return files, nil
}

// ServeHTTP serves stored files by the last path element of the request.
func (s *DiskStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := filepath.Base(r.URL.Path)
	file, err := s.Open(r.Context(), key)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, key, file.CreatedAt, file.Reader.(io.ReadSeeker))
}

func (s *DiskStore) file(key string, meta diskMeta) *File {
	return &File{
		Key:         key,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		URL:         s.urlPrefix + key,
		CreatedAt:   meta.CreatedAt,
	}
}

func (s *DiskStore) metaPath(key string) string {
	return filepath.Join(s.dir, key+".meta")
}

func (s *DiskStore) saveMeta(key string, meta diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath(key), data, 0o644)
}

func (s *DiskStore) loadMeta(key string) (diskMeta, error) {
	var meta diskMeta
	data, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		return meta, err
	}
	err = json.Unmarshal(data, &meta)
	return meta, err
}
