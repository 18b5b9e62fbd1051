package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/garden"
)

func TestExportImportGarden(t *testing.T) {
	dir := t.TempDir()
	src := newFixture(t)
	src.svc.Config.AllowedPaths = []string{dir}
	ctx := context.Background()

	for _, name := range []string{"Fern", "Pothos"} {
		if _, err := src.svc.Garden.Add(ctx, garden.Plant{Name: name}); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}

	path := filepath.Join(dir, "garden.yaml")
	out, err := src.svc.ExportGarden(ctx, ExportInput{Path: path})
	if err != nil {
		t.Fatalf("ExportGarden() error = %v", err)
	}
	if out.Count != 2 || out.Path != path {
		t.Errorf("out = %+v", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "name: Fern") {
		t.Errorf("export missing plant:\n%s", data)
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}

	dst := newFixture(t)
	dst.svc.Config.AllowedPaths = []string{dir}
	res, err := dst.svc.ImportGarden(ctx, ImportInput{Path: path})
	if err != nil {
		t.Fatalf("ImportGarden() error = %v", err)
	}
	if res.Imported != 2 || res.Total != 2 {
		t.Errorf("result = %+v", res)
	}

	again, err := dst.svc.ImportGarden(ctx, ImportInput{Path: path})
	if err != nil {
		t.Fatalf("second ImportGarden() error = %v", err)
	}
	if again.Imported != 0 || again.Skipped != 2 {
		t.Errorf("merge should skip known ids: %+v", again)
	}
}

func TestExportGarden_RejectsPathOutsideExports(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ExportGarden(context.Background(), ExportInput{Path: filepath.Join(t.TempDir(), "garden.yaml")})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestImportGarden_Invalid(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t)
	f.svc.Config.AllowedPaths = []string{dir}
	ctx := context.Background()

	_, err := f.svc.ImportGarden(ctx, ImportInput{Path: filepath.Join(dir, "missing.yaml")})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing file error = %v, want NOT_FOUND", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("plants: [\n"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.ImportGarden(ctx, ImportInput{Path: bad})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("malformed file error = %v, want INVALID_REQUEST", err)
	}
	if f.svc.Garden.Total() != 0 {
		t.Error("a failed import must leave the garden unchanged")
	}
}
