package garden

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/flourish/internal/errors"
)

// ExportVersion is the version written in export files.
const ExportVersion = 1

// ImportMode controls how imported plants meet the existing collection.
type ImportMode string

const (
	ImportModeMerge   ImportMode = "merge"   // default: add plants whose id is new
	ImportModeReplace ImportMode = "replace" // swap the whole collection
)

// exportFile is the YAML document shape. Plants go through their JSON form
// so the file uses the same field names as the stored snapshot.
type exportFile struct {
	Version    int       `yaml:"version"`
	ExportedAt time.Time `yaml:"exported_at"`
	Count      int       `yaml:"count"`
	Plants     []any     `yaml:"plants"`
}

// ImportResult reports what Import changed.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// Export writes the whole collection as YAML.
func (s *Store) Export(w io.Writer) (int, error) {
	plants := s.List()

	raw, err := json.Marshal(plants)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	var generic []any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return 0, errors.NewInternal(err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	doc := exportFile{
		Version:    ExportVersion,
		ExportedAt: s.now(),
		Count:      len(plants),
		Plants:     generic,
	}
	if err := enc.Encode(doc); err != nil {
		return 0, errors.NewInternal(err)
	}
	if err := enc.Close(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return len(plants), nil
}

// Import reads a YAML export and applies it in one snapshot write.
func (s *Store) Import(ctx context.Context, r io.Reader, mode ImportMode) (*ImportResult, error) {
	if mode == "" {
		mode = ImportModeMerge
	}
	if mode != ImportModeMerge && mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: merge, replace")
	}

	var doc exportFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, errors.NewInvalidRequest("import file is empty")
		}
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid import file: %v", err))
	}
	if doc.Version > ExportVersion {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unsupported export version %d", doc.Version))
	}

	raw, err := json.Marshal(doc.Plants)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid plants: %v", err))
	}
	var incoming []Plant
	if err := json.Unmarshal(raw, &incoming); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid plants: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var next []Plant
	seen := make(map[string]bool)
	if mode == ImportModeMerge {
		next = make([]Plant, len(s.plants), len(s.plants)+len(incoming))
		copy(next, s.plants)
		for _, p := range s.plants {
			seen[p.ID] = true
		}
	} else {
		next = make([]Plant, 0, len(incoming))
	}

	res := &ImportResult{}
	for _, p := range incoming {
		if p.ID == "" {
			p.ID = s.newID(now)
		}
		if seen[p.ID] {
			res.Skipped++
			continue
		}
		seen[p.ID] = true
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		normalize(&p)
		next = append(next, p)
		res.Imported++
	}

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	res.Total = len(next)
	return res, nil
}
