package artifact_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lukashuebner/tugboat/internal/artifact"
	"github.com/lukashuebner/tugboat/internal/models"
)

func TestPredicates(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full")
	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(full, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		exists  bool
		present bool
	}{
		{name: "non-empty file", path: full, exists: true, present: true},
		{name: "empty file", path: empty, exists: true, present: false},
		{name: "directory", path: dir, exists: true, present: false},
		{name: "missing", path: filepath.Join(dir, "missing"), exists: false, present: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := artifact.Exists(tt.path); got != tt.exists {
				t.Errorf("Exists = %v, want %v", got, tt.exists)
			}
			if got := artifact.Present(tt.path); got != tt.present {
				t.Errorf("Present = %v, want %v", got, tt.present)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.csv")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := artifact.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if artifact.Exists(path) {
		t.Error("file still exists after Remove")
	}
	if err := artifact.Remove(path); err != nil {
		t.Errorf("removing a missing file should succeed, got %v", err)
	}
}

func TestExisting(t *testing.T) {
	dir := t.TempDir()
	layout := models.Layout{DataDir: dir, MeasurementsDir: dir}
	a, err := models.NewEmpiricalDataset(layout, "1kg", "1", "chr1", "http://x/chr1.tsz")
	if err != nil {
		t.Fatal(err)
	}
	b, err := models.NewEmpiricalDataset(layout, "1kg", "2", "chr2", "http://x/chr2.tsz")
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{a.TreesFile(), b.ArchiveFile(), b.ResultFile(models.ResultOpsBench)} {
		if err := os.WriteFile(p, []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	files := artifact.Existing([]models.Dataset{a, b}, []artifact.Kind{artifact.KindArchive, artifact.KindTrees, artifact.KindOpsBench})
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %+v", len(files), files)
	}

	if files[0].Dataset != "chr1" || files[0].Kind != artifact.KindTrees {
		t.Errorf("unexpected first file %+v", files[0])
	}
	if files[2].Path != b.ResultFile(models.ResultOpsBench) || files[2].Size != 4 {
		t.Errorf("unexpected last file %+v", files[2])
	}
}
