package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Set is a named, user-authored prompt forest as stored on disk or in
// the prompt-set store.
type Set struct {
	Name    string   `json:"name" yaml:"name"`
	Prompts []Prompt `json:"prompts" yaml:"prompts"`
}

// LoadSet parses a prompt set from YAML bytes. Prompts without an id
// get a generated one; parent references are resolved by id.
func LoadSet(source string, data []byte) (*Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse prompt set %s: %w", source, err)
	}
	if len(set.Prompts) == 0 {
		return nil, fmt.Errorf("prompt set %s contains no prompts", source)
	}
	if strings.TrimSpace(set.Name) == "" {
		set.Name = source
	}
	for i := range set.Prompts {
		if strings.TrimSpace(set.Prompts[i].ID) == "" {
			set.Prompts[i].ID = uuid.New().String()
		}
	}
	// Building the forest validates parent references and triggers.
	if _, err := NewForest(set.Prompts...); err != nil {
		return nil, fmt.Errorf("prompt set %s: %w", source, err)
	}
	return &set, nil
}

// LoadSetFile reads and parses a prompt set from a YAML file.
func LoadSetFile(path string) (*Set, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- Set path is user-provided
	if err != nil {
		return nil, fmt.Errorf("read prompt set: %w", err)
	}
	return LoadSet(path, data)
}

// Forest builds the executable forest for the set.
func (s *Set) Forest() (*Forest, error) {
	return NewForest(s.Prompts...)
}

// Marshal renders the set back to YAML.
func (s *Set) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
