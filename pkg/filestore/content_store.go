// Package filestore keeps uploaded originals content-addressed on local disk and
// writes extracted text next to them.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// StoredFile describes the result of a Store call.
type StoredFile struct {
	Path string
	Size int64
	Hash string
	// Created is false when identical bytes were already on disk.
	Created bool
}

type ContentStore struct {
	uploadDir string
	textDir   string
}

func NewContentStore(uploadDir, textDir string) (*ContentStore, error) {
	for _, dir := range []string{uploadDir, textDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return &ContentStore{uploadDir: uploadDir, textDir: textDir}, nil
}

// Fingerprint returns the hex sha256 of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Store writes data under its fingerprint. The file is staged in a temp file and
// hard-linked into place, so concurrent identical uploads end up with one file.
func (s *ContentStore) Store(data []byte, declaredFilename string) (*StoredFile, error) {
	hash := Fingerprint(data)
	ext := strings.ToLower(filepath.Ext(declaredFilename))
	if ext == "" {
		ext = ".bin"
	}
	finalPath := filepath.Join(s.uploadDir, hash+ext)

	tmp, err := os.CreateTemp(s.uploadDir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	created := true
	if err := os.Link(tmpPath, finalPath); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("link %s: %w", finalPath, err)
		}
		created = false
	}

	return &StoredFile{
		Path:    finalPath,
		Size:    int64(len(data)),
		Hash:    hash,
		Created: created,
	}, nil
}

// TextPath is where the extracted text of a document lives.
func (s *ContentStore) TextPath(documentID uint) string {
	return filepath.Join(s.textDir, fmt.Sprintf("%d.txt", documentID))
}

// WriteText atomically (re)writes the extracted text for a document.
func (s *ContentStore) WriteText(documentID uint, text string) (string, error) {
	path := s.TextPath(documentID)

	tmp, err := os.CreateTemp(s.textDir, ".text-*")
	if err != nil {
		return "", fmt.Errorf("create temp text file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write text: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close text: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename text: %w", err)
	}
	return path, nil
}

func (s *ContentStore) ReadText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *ContentStore) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Remove deletes path. A missing file is not an error.
func (s *ContentStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
