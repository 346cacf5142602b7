// Package projectconf loads the annotation type configuration of a
// collection: which types are entities, events and relations, the argument
// labels of relations, and which relations are equivalences. A Config is
// immutable once loaded and answers the queries the annotator engine needs.
package projectconf

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nainya/annstore/pkg/annotator"
)

// FileName is the name of the type configuration file in a collection
// directory
const FileName = "annotation.yaml"

// ErrInvalid is returned for a configuration that parses but is inconsistent
var ErrInvalid = errors.New("projectconf: invalid configuration")

// RelationType describes one relation type. A relation whose properties
// include both "symmetric" and "transitive" is an equivalence.
type RelationType struct {
	Type       string   `yaml:"type"`
	Args       []string `yaml:"args"`
	Properties []string `yaml:"properties,omitempty"`
}

// File is the on-disk form of a type configuration.
type File struct {
	Entities  []string       `yaml:"entities"`
	Events    []string       `yaml:"events"`
	Relations []RelationType `yaml:"relations"`
}

// Config answers type questions for one collection. It implements
// annotator.TypeConfig.
type Config struct {
	path      string
	entities  map[string]bool
	events    map[string]bool
	relations map[string]RelationType
	equivs    map[string]bool
}

var _ annotator.TypeConfig = (*Config)(nil)

// Empty returns a configuration that knows no types
func Empty() *Config {
	c, _ := New(File{})
	return c
}

// New builds a Config from its file form
func New(f File) (*Config, error) {
	c := &Config{
		entities:  make(map[string]bool, len(f.Entities)),
		events:    make(map[string]bool, len(f.Events)),
		relations: make(map[string]RelationType, len(f.Relations)),
		equivs:    make(map[string]bool),
	}
	seen := make(map[string]string)
	claim := func(typ, kind string) error {
		if typ == "" {
			return fmt.Errorf("%w: empty %s type", ErrInvalid, kind)
		}
		if prev, dup := seen[typ]; dup {
			return fmt.Errorf("%w: %s declared as both %s and %s", ErrInvalid, typ, prev, kind)
		}
		seen[typ] = kind
		return nil
	}

	for _, t := range f.Entities {
		if err := claim(t, "entity"); err != nil {
			return nil, err
		}
		c.entities[t] = true
	}
	for _, t := range f.Events {
		if err := claim(t, "event"); err != nil {
			return nil, err
		}
		c.events[t] = true
	}
	for _, r := range f.Relations {
		if err := claim(r.Type, "relation"); err != nil {
			return nil, err
		}
		if len(r.Args) != 2 || r.Args[0] == "" || r.Args[1] == "" || r.Args[0] == r.Args[1] {
			return nil, fmt.Errorf("%w: relation %s needs two distinct argument labels", ErrInvalid, r.Type)
		}
		c.relations[r.Type] = r
		if hasProperty(r, "symmetric") && hasProperty(r, "transitive") {
			c.equivs[r.Type] = true
		}
	}
	return c, nil
}

// Load reads a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("projectconf: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.path = path
	return c, nil
}

// Parse reads a configuration from YAML
func Parse(data []byte) (*Config, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("projectconf: parse: %w", err)
	}
	return New(f)
}

// Path returns the file the configuration was loaded from, if any
func (c *Config) Path() string { return c.path }

func (c *Config) IsEventType(t string) bool          { return c.events[t] }
func (c *Config) IsEquivType(t string) bool          { return c.equivs[t] }
func (c *Config) IsPhysicalEntityType(t string) bool { return c.entities[t] }

func (c *Config) IsRelationType(t string) bool {
	_, ok := c.relations[t]
	return ok
}

// TypeCategory places t in the entity, event or relation category
func (c *Config) TypeCategory(t string) annotator.Category {
	switch {
	case c.IsPhysicalEntityType(t):
		return annotator.CategoryEntity
	case c.IsEventType(t):
		return annotator.CategoryEvent
	case c.IsRelationType(t):
		return annotator.CategoryRelation
	}
	return annotator.CategoryUnknown
}

// RelationArgLabels returns the argument labels of relation type t
func (c *Config) RelationArgLabels(t string) (string, string, bool) {
	r, ok := c.relations[t]
	if !ok {
		return "", "", false
	}
	return r.Args[0], r.Args[1], true
}

func hasProperty(r RelationType, p string) bool {
	for _, q := range r.Properties {
		if q == p {
			return true
		}
	}
	return false
}
