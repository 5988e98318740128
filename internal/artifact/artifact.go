// Package artifact holds the filesystem predicates stage decisions are based
// on, and the selection of existing artifacts used by status and clean.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/lukashuebner/tugboat/internal/models"
)

// Exists reports whether anything is at path. Stage outputs are checked with
// Exists: an empty output still counts as produced.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Present reports whether path is a non-empty regular file. Stage inputs are
// checked with Present so a truncated upstream artifact is not consumed.
func Present(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// Remove deletes path. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Kind names one artifact file type of a dataset.
type Kind string

const (
	KindArchive         Kind = "tsz"
	KindTrees           Kind = "trees"
	KindForest          Kind = "forest"
	KindOpsBench        Kind = Kind(models.ResultOpsBench)
	KindTajimasDBench   Kind = Kind(models.ResultTajimasDBench)
	KindConversionBench Kind = Kind(models.ResultConversionBench)
)

// Kinds lists every artifact kind in pipeline order.
var Kinds = []Kind{KindArchive, KindTrees, KindForest, KindConversionBench, KindOpsBench, KindTajimasDBench}

// Path returns the path of the given artifact kind for ds.
func Path(ds models.Dataset, kind Kind) string {
	switch kind {
	case KindArchive:
		return ds.ArchiveFile()
	case KindTrees:
		return ds.TreesFile()
	case KindForest:
		return ds.ForestFile()
	default:
		return ds.ResultFile(models.ResultKind(kind))
	}
}

// File is an artifact found on disk.
type File struct {
	Dataset string
	Kind    Kind
	Path    string
	Size    int64
}

// Stat returns the artifact of the given kind for ds if it exists.
func Stat(ds models.Dataset, kind Kind) (File, bool) {
	path := Path(ds, kind)
	info, err := os.Stat(path)
	if err != nil {
		return File{}, false
	}
	return File{Dataset: ds.Basename(), Kind: kind, Path: path, Size: info.Size()}, true
}

// Existing lists the artifacts of the selected kinds that exist, dataset-major
// in catalog order.
func Existing(datasets []models.Dataset, kinds []Kind) []File {
	var files []File
	for _, ds := range datasets {
		for _, kind := range kinds {
			if f, ok := Stat(ds, kind); ok {
				files = append(files, f)
			}
		}
	}
	return files
}
