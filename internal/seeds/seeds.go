// Package seeds loads curated competitor seed lists from YAML files.
// Seeds complement LLM discovery and carry verified ad-archive source ids.
package seeds

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/adintel-cli/internal/model"
)

// File is the on-disk seed list shape.
type File struct {
	Vertical    string `yaml:"vertical"`
	Competitors []Seed `yaml:"competitors"`
}

// Seed is one curated competitor entry.
type Seed struct {
	Name     string  `yaml:"name"`
	SourceID string  `yaml:"source_id"`
	Score    float64 `yaml:"score"`
}

// Load reads a seed file and returns candidates for the given vertical.
// A missing path is not an error: discovery then runs from scoring alone.
func Load(path, vertical string) ([]model.Candidate, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "seeds: read %s", path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "seeds: parse %s", path)
	}

	// A seed file pinned to another vertical is ignored rather than mixed in.
	if f.Vertical != "" && vertical != "" && f.Vertical != vertical {
		return nil, nil
	}

	out := make([]model.Candidate, 0, len(f.Competitors))
	for _, s := range f.Competitors {
		if s.Name == "" {
			continue
		}
		score := s.Score
		if score <= 0 {
			score = 1.0
		}
		out = append(out, model.Candidate{
			CompanyName: s.Name,
			SourceList:  "seed_file",
			RawScore:    score,
			SourceID:    s.SourceID,
		})
	}
	return out, nil
}
