package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/lukashuebner/tugboat/internal/models"
)

// EmpiricalHeader is the exact, order-sensitive header of an empirical source.
var EmpiricalHeader = []string{"collection", "chromosome", "basename", "tsz_url"}

// simulatedKeyColumn must be the first column of a simulation config table.
const simulatedKeyColumn = "name"

// ReadEmpirical parses an empirical dataset table. No dataset is returned
// unless every row is valid.
func ReadEmpirical(r io.Reader, layout models.Layout) ([]models.Dataset, error) {
	rows, err := readTable(r)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(rows[0], EmpiricalHeader) {
		return nil, fmt.Errorf("%w: expected header %s, got %s",
			models.ErrSchemaMismatch, strings.Join(EmpiricalHeader, ","), strings.Join(rows[0], ","))
	}

	datasets := make([]models.Dataset, 0, len(rows)-1)
	for i, row := range rows[1:] {
		ds, err := models.NewEmpiricalDataset(layout, row[0], row[1], row[2], row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// ReadSimulated parses a simulation configuration table. Columns after
// "name" are kept as generator parameters.
func ReadSimulated(r io.Reader, layout models.Layout, collection, prefix string) ([]models.Dataset, error) {
	rows, err := readTable(r)
	if err != nil {
		return nil, err
	}
	header := rows[0]
	if header[0] != simulatedKeyColumn {
		return nil, fmt.Errorf("%w: first column must be %q, got %q",
			models.ErrSchemaMismatch, simulatedKeyColumn, header[0])
	}

	datasets := make([]models.Dataset, 0, len(rows)-1)
	for i, row := range rows[1:] {
		params := make([]models.SimParam, 0, len(header)-1)
		for j := 1; j < len(header); j++ {
			params = append(params, models.SimParam{Name: header[j], Value: row[j]})
		}
		ds, err := models.NewSimulatedDataset(layout, collection, prefix, row[0], params)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// readTable reads a whole CSV table. Every row must have the header's width.
func readTable(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
			return nil, fmt.Errorf("%w: line %d has a wrong number of fields", models.ErrMalformedDatasetRecord, perr.Line)
		}
		return nil, fmt.Errorf("parsing table: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: missing header", models.ErrSchemaMismatch)
	}
	return rows, nil
}
