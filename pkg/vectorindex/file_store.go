package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileStore keeps one JSON artifact per document version under <root>/<documentID>/<version>.json.
type FileStore struct {
	root string
}

type fileArtifact struct {
	DocumentID uint      `json:"document_id"`
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Chunks     []Chunk   `json:"chunks"`
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create vector store dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) documentDir(documentID uint) string {
	return filepath.Join(s.root, strconv.FormatUint(uint64(documentID), 10))
}

func (s *FileStore) artifactPath(key Key) string {
	return filepath.Join(s.documentDir(key.DocumentID), key.Version+".json")
}

func (s *FileStore) Load(_ context.Context, key Key) (Index, error) {
	data, err := os.ReadFile(s.artifactPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrIndexNotFound
		}
		return nil, err
	}

	var artifact fileArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", key, err)
	}

	return newMemoryIndex(key, artifact.Chunks), nil
}

// Save writes the artifact atomically, then removes artifacts of older versions.
func (s *FileStore) Save(_ context.Context, key Key, chunks []Chunk) (Index, error) {
	dir := s.documentDir(key.DocumentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	data, err := json.Marshal(fileArtifact{
		DocumentID: key.DocumentID,
		Version:    key.Version,
		CreatedAt:  time.Now(),
		Chunks:     chunks,
	})
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return nil, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpName, s.artifactPath(key)); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasSuffix(name, ".json") && name != key.Version+".json" {
				_ = os.Remove(filepath.Join(dir, name))
			}
		}
	}

	return newMemoryIndex(key, chunks), nil
}

func (s *FileStore) Delete(_ context.Context, documentID uint) error {
	return os.RemoveAll(s.documentDir(documentID))
}
