package models

import (
	"fmt"
	"path/filepath"
)

// ResultKind identifies one of the per-dataset measurement files.
type ResultKind string

const (
	ResultOpsBench        ResultKind = "ops_bench"
	ResultTajimasDBench   ResultKind = "tajimasD_bench"
	ResultConversionBench ResultKind = "conversion_bench"
)

// ResultKinds lists every result kind in collection order.
var ResultKinds = []ResultKind{ResultOpsBench, ResultTajimasDBench, ResultConversionBench}

// ParseResultKind converts a user supplied name to a ResultKind.
func ParseResultKind(s string) (ResultKind, error) {
	for _, k := range ResultKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown result kind: %s", s)
}

// Layout holds the root directories all artifact paths are derived from.
type Layout struct {
	DataDir         string
	MeasurementsDir string
}

// Dataset is one unit of pipeline work. Empirical and simulated datasets
// share the artifact naming convention but are constructed from different
// sources.
type Dataset interface {
	Collection() string
	// Key is the identifying metadata: a chromosome for empirical datasets,
	// the simulation config name for simulated ones.
	Key() string
	Basename() string
	// SourceURL is empty for datasets that are not downloaded.
	SourceURL() string

	ArchiveFile() string
	TreesFile() string
	ForestFile() string
	ResultFile(kind ResultKind) string
}

// Artifacts derives every artifact path of a dataset from its basename.
type Artifacts struct {
	layout   Layout
	basename string
}

func (a Artifacts) Basename() string { return a.basename }

func (a Artifacts) ArchiveFile() string {
	return filepath.Join(a.layout.DataDir, a.basename+".tsz")
}

func (a Artifacts) TreesFile() string {
	return filepath.Join(a.layout.DataDir, a.basename+".trees")
}

func (a Artifacts) ForestFile() string {
	return filepath.Join(a.layout.DataDir, a.basename+".forest")
}

func (a Artifacts) ResultFile(kind ResultKind) string {
	return filepath.Join(a.layout.MeasurementsDir, a.basename+"."+string(kind)+".csv")
}

// EmpiricalDataset is a dataset downloaded from an external source.
type EmpiricalDataset struct {
	Artifacts
	collection string
	chromosome string
	url        string
}

// NewEmpiricalDataset validates the record fields and builds the dataset.
func NewEmpiricalDataset(layout Layout, collection, chromosome, basename, url string) (*EmpiricalDataset, error) {
	switch {
	case collection == "":
		return nil, fmt.Errorf("%w: empty collection", ErrMalformedDatasetRecord)
	case basename == "":
		return nil, fmt.Errorf("%w: empty basename", ErrMalformedDatasetRecord)
	case url == "":
		return nil, fmt.Errorf("%w: %s has no tsz_url", ErrMalformedDatasetRecord, basename)
	}
	return &EmpiricalDataset{
		Artifacts:  Artifacts{layout: layout, basename: basename},
		collection: collection,
		chromosome: chromosome,
		url:        url,
	}, nil
}

func (d *EmpiricalDataset) Collection() string { return d.collection }
func (d *EmpiricalDataset) Key() string        { return d.chromosome }
func (d *EmpiricalDataset) SourceURL() string  { return d.url }

// Chromosome returns the chromosome the dataset covers.
func (d *EmpiricalDataset) Chromosome() string { return d.chromosome }

// SimParam is one pass-through column of the simulation configuration.
type SimParam struct {
	Name  string
	Value string
}

// SimulatedDataset is a dataset produced by an external simulation generator.
type SimulatedDataset struct {
	Artifacts
	collection string
	name       string
	params     []SimParam
}

// NewSimulatedDataset builds a simulated dataset whose basename is prefix+name.
func NewSimulatedDataset(layout Layout, collection, prefix, name string, params []SimParam) (*SimulatedDataset, error) {
	switch {
	case collection == "":
		return nil, fmt.Errorf("%w: empty collection", ErrMalformedDatasetRecord)
	case name == "":
		return nil, fmt.Errorf("%w: empty simulation name", ErrMalformedDatasetRecord)
	}
	return &SimulatedDataset{
		Artifacts:  Artifacts{layout: layout, basename: prefix + name},
		collection: collection,
		name:       name,
		params:     append([]SimParam(nil), params...),
	}, nil
}

func (d *SimulatedDataset) Collection() string { return d.collection }
func (d *SimulatedDataset) Key() string        { return d.name }
func (d *SimulatedDataset) SourceURL() string  { return "" }

// Params returns the generator parameters in column order.
func (d *SimulatedDataset) Params() []SimParam {
	return append([]SimParam(nil), d.params...)
}
