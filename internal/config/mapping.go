package config

import (
	"encoding/json"
	"fmt"

	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/spf13/afero"
)

// LoadMapping reads a name mapping file, either a list of
// {"source","target"} objects or a {"source":"target"} object.
func LoadMapping(fs afero.Fs, filePath string) (models.NameMapping, error) {
	bytes, err := afero.ReadFile(fs, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file '%s': %w", filePath, err)
	}

	var mapping models.NameMapping
	if err := json.Unmarshal(bytes, &mapping); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file '%s': %w", filePath, err)
	}
	if err := mapping.Validate(); err != nil {
		return nil, fmt.Errorf("mapping file '%s': %w", filePath, err)
	}
	return mapping, nil
}
