package catalogue

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/stepwise-backend/internal/domain"
)

//go:embed catalogue.yaml
var embedded []byte

type Entry struct {
	Key   string            `yaml:"key"`
	Name  string            `yaml:"name"`
	Names map[string]string `yaml:"names"`
}

type Catalogue struct {
	entries []Entry
	byKey   map[string]Entry
}

type document struct {
	Goals []Entry `yaml:"goals"`
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalogue
	defaultErr  error
)

// Default returns the embedded catalogue.
func Default() (*Catalogue, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load(embedded)
	})
	return defaultCat, defaultErr
}

// Load parses a catalogue document. Keys must be non-empty and unique.
func Load(data []byte) (*Catalogue, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	c := &Catalogue{byKey: make(map[string]Entry, len(doc.Goals))}
	for i, e := range doc.Goals {
		e.Key = strings.TrimSpace(e.Key)
		e.Name = strings.TrimSpace(e.Name)
		if e.Key == "" {
			return nil, fmt.Errorf("catalogue entry %d: empty key", i)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("catalogue entry %q: empty name", e.Key)
		}
		if _, dup := c.byKey[e.Key]; dup {
			return nil, fmt.Errorf("catalogue entry %q: duplicate key", e.Key)
		}
		c.byKey[e.Key] = e
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Entries returns the catalogue in declaration order.
func (c *Catalogue) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Catalogue) Keys() []string {
	keys := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		keys = append(keys, e.Key)
	}
	return keys
}

func (c *Catalogue) Lookup(key string) (Entry, bool) {
	e, ok := c.byKey[key]
	return e, ok
}

// DisplayName localizes a catalogue goal, falling back to its default name.
func (c *Catalogue) DisplayName(key string, lang domain.Language) (string, bool) {
	e, ok := c.byKey[key]
	if !ok {
		return "", false
	}
	if n := strings.TrimSpace(e.Names[lang.String()]); n != "" {
		return n, true
	}
	return e.Name, true
}
