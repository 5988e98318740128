// Package dataset loads the dataset catalog from its structured sources.
package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/lukashuebner/tugboat/internal/models"
)

// Catalog is the ordered set of datasets known to one invocation.
type Catalog struct {
	datasets []models.Dataset
}

// NewCatalog builds a catalog, rejecting duplicate basenames.
func NewCatalog(datasets []models.Dataset) (*Catalog, error) {
	seen := make(map[string]struct{}, len(datasets))
	for _, ds := range datasets {
		if _, ok := seen[ds.Basename()]; ok {
			return nil, fmt.Errorf("%w: %s", models.ErrDuplicateBasename, ds.Basename())
		}
		seen[ds.Basename()] = struct{}{}
	}
	return &Catalog{datasets: slices.Clone(datasets)}, nil
}

// All returns every dataset in insertion order.
func (c *Catalog) All() []models.Dataset {
	return slices.Clone(c.datasets)
}

// Len returns the number of datasets.
func (c *Catalog) Len() int {
	return len(c.datasets)
}

// ByCollection returns the datasets whose collection is in names, in
// catalog order. Unknown names simply match nothing.
func (c *Catalog) ByCollection(names ...string) []models.Dataset {
	var out []models.Dataset
	for _, ds := range c.datasets {
		if slices.Contains(names, ds.Collection()) {
			out = append(out, ds)
		}
	}
	return out
}

// Select returns all datasets when names is empty, ByCollection otherwise.
func (c *Catalog) Select(names []string) []models.Dataset {
	if len(names) == 0 {
		return c.All()
	}
	return c.ByCollection(names...)
}

// Collections lists the distinct collection names in catalog order.
func (c *Catalog) Collections() []string {
	var out []string
	for _, ds := range c.datasets {
		if !slices.Contains(out, ds.Collection()) {
			out = append(out, ds.Collection())
		}
	}
	return out
}

// Load reads every configured source and concatenates them in source order.
// Any unreadable or malformed source fails the whole load.
func Load(ctx context.Context, cfg models.Config) (*Catalog, error) {
	layout := cfg.Layout()
	parts := make([][]models.Dataset, len(cfg.Sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range cfg.Sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			datasets, err := loadSource(layout, src)
			if err != nil {
				return fmt.Errorf("loading %s source %s: %w", src.Kind, src.Path, err)
			}
			slog.Debug("loaded dataset source", "kind", src.Kind, "path", src.Path, "datasets", len(datasets))
			parts[i] = datasets
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewCatalog(slices.Concat(parts...))
}

func loadSource(layout models.Layout, src models.SourceRef) ([]models.Dataset, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot open datasets description: %w", err)
	}
	defer f.Close()

	switch src.Kind {
	case models.SourceEmpirical:
		return ReadEmpirical(f, layout)
	case models.SourceSimulated:
		return ReadSimulated(f, layout, src.Collection, src.Prefix)
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", src.Kind)
	}
}
