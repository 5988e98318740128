// Package results reads the per-dataset measurement files and merges them
// into one combined table.
package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/lukashuebner/tugboat/internal/models"
)

// Header is the schema shared by every result file and the combined table.
var Header = []string{"section", "variant", "dataset", "revision", "machine_id", "iteration", "variable", "value", "unit"}

// Warning is a result file that was left out of the merge.
type Warning struct {
	Path    string
	Type    models.ErrorType
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Path, w.Message)
}

// MergeReport describes what went into the combined table.
type MergeReport struct {
	Output   string
	Files    int
	Rows     int
	Warnings []Warning
}

// Files lists the result files of the given kinds, kind-major and in dataset
// order within a kind.
func Files(datasets []models.Dataset, kinds []models.ResultKind) []string {
	var files []string
	for _, kind := range kinds {
		for _, ds := range datasets {
			files = append(files, ds.ResultFile(kind))
		}
	}
	return files
}

// Merge concatenates the rows of every usable input file into out, written
// with a single header row. Missing inputs are ignored; empty or malformed
// ones are reported as warnings and excluded. An error is only returned when
// the combined table cannot be written.
func Merge(inputs []string, out string) (MergeReport, error) {
	report, rows := gather(inputs, out)
	if err := writeAtomic(out, rows); err != nil {
		return report, err
	}
	return report, nil
}

// Inspect reports what Merge would put into out without writing anything.
func Inspect(inputs []string, out string) MergeReport {
	report, _ := gather(inputs, out)
	return report
}

func gather(inputs []string, out string) (MergeReport, [][]string) {
	report := MergeReport{Output: out}
	var rows [][]string

	for _, path := range inputs {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("result file does not exist", "path", path)
			continue
		}
		if err != nil {
			report.Warnings = append(report.Warnings, Warning{Path: path, Type: models.ErrMalformedResultFile, Message: err.Error()})
			continue
		}
		if info.Size() == 0 {
			report.Warnings = append(report.Warnings, Warning{Path: path, Type: models.ErrEmptyResultFile, Message: "file is empty"})
			continue
		}

		fileRows, err := readFile(path)
		if err != nil {
			report.Warnings = append(report.Warnings, Warning{Path: path, Type: models.ErrMalformedResultFile, Message: err.Error()})
			continue
		}
		rows = append(rows, fileRows...)
		report.Files++
		report.Rows += len(fileRows)
	}

	if report.Files == 0 {
		report.Warnings = append(report.Warnings, Warning{Path: out, Type: models.ErrEmptyResultFile, Message: "no result files to merge"})
	}

	return report, rows
}

func readFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if !slices.Equal(header, Header) {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeAtomic(out string, rows [][]string) error {
	dir := filepath.Dir(out)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(out)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	w.Write(Header)
	w.WriteAll(rows)
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", out, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
