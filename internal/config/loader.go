package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"regexp"

	"github.com/BartekS5/astramigrate/pkg/models"
	"github.com/spf13/afero"
)

// Job is one migration run described in a JSON file.
type Job struct {
	Family     string                  `json:"family"`
	Connection models.ConnectionConfig `json:"connection"`
	Limit      int                     `json:"limit,omitempty"`
	DryRun     bool                    `json:"dry_run,omitempty"`
	AutoCreate bool                    `json:"auto_create,omitempty"`
	Tables     models.NameMapping      `json:"tables"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with their environment values. Any
// other '$' is kept as written. Unset variables are an error.
func expandEnv(s string) (string, error) {
	var missing string
	out := envRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := envRef.FindStringSubmatch(ref)[1]
		v, ok := os.LookupEnv(name)
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("environment variable %s is not set", missing)
	}
	return out, nil
}

func expandConnection(c *models.ConnectionConfig) error {
	for _, field := range []*string{&c.Host, &c.Username, &c.Password, &c.Database, &c.Schema} {
		v, err := expandEnv(*field)
		if err != nil {
			return err
		}
		*field = v
	}
	if c.Options == nil {
		return nil
	}
	opts := maps.Clone(c.Options)
	for k, v := range opts {
		expanded, err := expandEnv(v)
		if err != nil {
			return err
		}
		opts[k] = expanded
	}
	c.Options = opts
	return nil
}

// LoadJob reads and parses a job file. ${VAR} references in the connection
// block are expanded from the environment after parsing, so secrets can stay
// out of the file.
func LoadJob(fs afero.Fs, filePath string) (*Job, models.Family, error) {
	bytes, err := afero.ReadFile(fs, filePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read job file '%s': %w", filePath, err)
	}

	var job Job
	if err := json.Unmarshal(bytes, &job); err != nil {
		return nil, "", fmt.Errorf("failed to parse job file '%s': %w", filePath, err)
	}
	if err := expandConnection(&job.Connection); err != nil {
		return nil, "", fmt.Errorf("job file '%s': %w", filePath, err)
	}

	family, err := models.ParseFamily(job.Family)
	if err != nil {
		return nil, "", fmt.Errorf("job file '%s': %w", filePath, err)
	}
	if err := job.Tables.Validate(); err != nil {
		return nil, "", fmt.Errorf("job file '%s': %w", filePath, err)
	}
	return &job, family, nil
}
