package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
)

// ExportInput contains parameters for the ExportGarden operation.
type ExportInput struct {
	Path string // optional, default: ~/.flourish/exports/garden-<timestamp>.yaml
}

// ExportOutput contains the result of the ExportGarden operation.
type ExportOutput struct {
	Path       string    `json:"path"`
	Count      int       `json:"count"`
	ExportedAt time.Time `json:"exported_at"`
}

// ExportGarden writes the whole garden to a YAML file. The file is written
// to a temporary name and renamed into place, so an existing export survives
// a failed write.
func (s *Service) ExportGarden(_ context.Context, input ExportInput) (*ExportOutput, error) {
	now := s.clock()
	path := input.Path
	if path == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "garden-"+now.Format("20060102-150405")+".yaml")
	}
	if err := ValidatePath(path, PathCheckWrite, s.Config); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(err)
	}
	tmp := path + "." + hex.EncodeToString(suffix) + ".tmp"
	f, err := openFileNoFollow(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	done := false
	defer func() {
		if f != nil {
			f.Close()
		}
		if !done {
			os.Remove(tmp)
		}
	}()

	count, err := s.Garden.Export(f)
	if err != nil {
		return nil, err
	}
	if err := f.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := f.Close(); err != nil {
		f = nil
		return nil, errors.NewInternal(err)
	}
	f = nil

	if runtime.GOOS == "windows" {
		// Rename does not replace an existing file there.
		os.Remove(path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	done = true

	return &ExportOutput{Path: path, Count: count, ExportedAt: now}, nil
}

// ImportInput contains parameters for the ImportGarden operation.
type ImportInput struct {
	Path string
	Mode garden.ImportMode // default merge
}

// ImportGarden loads plants from a YAML export.
func (s *Service) ImportGarden(ctx context.Context, input ImportInput) (*garden.ImportResult, error) {
	if err := ValidatePath(input.Path, PathCheckRead, s.Config); err != nil {
		return nil, err
	}
	f, err := openFileNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		if errors.As(err).Code != errors.ErrInternal {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer f.Close()

	return s.Garden.Import(ctx, f, input.Mode)
}
