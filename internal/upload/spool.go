// Package upload spools multipart uploads to disk for conversion and removes them afterwards.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"quickref/internal/models"
)

const (
	DefaultStaleAfter    = time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// ErrTooLarge is returned when an upload exceeds the spool's size limit.
var ErrTooLarge = errors.New("upload too large")

// Spool stores uploads under random names so concurrent uploads never collide.
type Spool struct {
	dir      string
	maxBytes int64
}

func NewSpool(dir string, maxBytes int64) (*Spool, error) {
	if dir == "" {
		return nil, errors.New("spool dir must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Spool{dir: dir, maxBytes: maxBytes}, nil
}

func (s *Spool) Dir() string { return s.dir }

// Save copies the uploaded file into the spool. The stored name is a fresh UUID followed by the
// original extension, lowercased.
func (s *Spool) Save(fh *multipart.FileHeader) (*models.SpooledFile, error) {
	if fh == nil {
		return nil, errors.New("file header required")
	}
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, fh.Size, s.maxBytes)
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	originalName := filepath.Base(fh.Filename)
	ext := strings.ToLower(filepath.Ext(originalName))
	dest := filepath.Join(s.dir, uuid.New().String()+ext)

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	var reader io.Reader = src
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	written, copyErr := io.Copy(out, reader)
	closeErr := out.Close()
	switch {
	case copyErr != nil:
		err = fmt.Errorf("write spool file: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close spool file: %w", closeErr)
	case s.maxBytes > 0 && written > s.maxBytes:
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxBytes)
	}
	if err != nil {
		_ = os.Remove(dest)
		return nil, err
	}
	return &models.SpooledFile{
		OriginalName: originalName,
		StoredPath:   dest,
		Extension:    ext,
		Size:         written,
	}, nil
}

// Remove deletes a spooled file. Failures are logged, never returned.
func (s *Spool) Remove(f *models.SpooledFile) {
	if f == nil {
		return
	}
	if err := os.Remove(f.StoredPath); err != nil && !os.IsNotExist(err) {
		log.Printf("upload: remove spool file %s failed: %v", f.StoredPath, err)
	}
}

// SweepStale removes spooled files older than maxAge, left behind by a crash mid-request.
func (s *Spool) SweepStale(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read spool dir: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("upload: remove stale spool file %s failed: %v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// StartSweeper runs SweepStale every interval until ctx is done.
func (s *Spool) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultStaleAfter
	}
	go s.sweepLoop(ctx, interval, maxAge)
}

func (s *Spool) sweepLoop(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepStale(maxAge); err != nil {
				log.Printf("upload: sweep spool dir error: %v", err)
			}
		}
	}
}
