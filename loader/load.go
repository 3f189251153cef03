// Package loader reads topic manifests for a pubsub bus. A manifest is a
// YAML or JSON file declaring the topics an application uses, so producers
// and consumers can share one declaration instead of each calling
// CreateTopic with string literals.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tanadeau/pubsub"
)

// TopicDecl declares a single topic.
type TopicDecl struct {
	// Name is the topic name. Required, unique within a manifest.
	Name string `json:"name" yaml:"name"`

	// Description documents what flows over the topic. Optional.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Manifest is a set of topic declarations.
type Manifest struct {
	Topics []TopicDecl `json:"topics" yaml:"topics"`
}

// LoadFile reads and parses a manifest file. The format is detected from
// the extension: .yaml/.yml parse as YAML, everything else as JSON.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return Load(data, path)
}

// Load parses manifest data. The path is used only for format detection
// and error messages.
func Load(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing YAML manifest %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing JSON manifest %s: %w", path, err)
		}
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// Apply creates every declared topic on the bus. Creation is idempotent,
// so applying the same manifest twice, or applying it on a bus that
// already has some of the topics, is harmless.
func (m *Manifest) Apply(b *pubsub.Bus) {
	for _, t := range m.Topics {
		b.CreateTopic(t.Name)
	}
}

func (m *Manifest) validate() error {
	if len(m.Topics) == 0 {
		return fmt.Errorf("no topics declared")
	}

	seen := make(map[string]bool, len(m.Topics))
	for i, t := range m.Topics {
		if t.Name == "" {
			return fmt.Errorf("topic %d: name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("topic %q declared twice", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
