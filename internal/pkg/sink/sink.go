// Package sink writes baked artifacts into an output tree.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sink is where baked pages end up. WriteFile either replaces the whole file or leaves
// the previous content untouched.
type Sink interface {
	EnsureDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, path string, content []byte) error
}

// FileSink writes under Root. Paths are relative to Root and may not escape it.
type FileSink struct {
	Root string
}

func NewFileSink(root string) (*FileSink, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %w", err)
	}
	return &FileSink{Root: abs}, nil
}

// Resolve maps a relative output path to an absolute one inside Root.
func (s *FileSink) Resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(path, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("sink: path %q escapes the output root", path)
	}
	return filepath.Join(s.Root, clean), nil
}

func (s *FileSink) EnsureDir(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := s.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}
	return nil
}

// WriteFile writes content to a temporary file next to path and renames it into place.
func (s *FileSink) WriteFile(ctx context.Context, path string, content []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.Resolve(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("os.CreateTemp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("os.Chmod: %w", err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("os.Rename: %w", err)
	}
	return nil
}
