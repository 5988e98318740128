package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/lukashuebner/tugboat/internal/models"
)

func decodeTOML(data []byte) (models.Config, error) {
	fc := fileConfig{Config: DefaultConfig()}
	fc.Sources = nil

	md, err := toml.Decode(string(data), &fc)
	if err != nil {
		return fc.Config, fmt.Errorf("parsing config: %w", err)
	}

	if !md.IsDefined("sources") {
		fc.Sources = DefaultConfig().Sources
		// Handle legacy 'datasets_csv' key if 'sources' is not explicitly set
		if md.IsDefined("datasets_csv") {
			useLegacyDatasetsCSV(&fc.Config, fc.DatasetsCSV)
		}
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fc.Config, fmt.Errorf("parsing config: unknown key %s", undecoded[0])
	}

	return fc.Config, nil
}
