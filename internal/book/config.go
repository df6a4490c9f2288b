package book

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/freeze"
)

// ConfigFileName is the project configuration file looked up in the book root.
const ConfigFileName = "_book.yaml"

// Config is the book-level project configuration. Title, subtitle, author
// and date of merged output always come from here, never from any chapter.
type Config struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Author   string `yaml:"author"`
	Date     string `yaml:"date"`

	// Index designates the book's landing page. It receives no chapter
	// number and is rendered first.
	Index string `yaml:"index"`

	OutputDir         string `yaml:"output-dir"`
	Freeze            string `yaml:"freeze"`
	KeepIntermediates bool   `yaml:"keep-intermediates"`

	// Formats maps format name to its rendering options.
	Formats map[string]map[string]any `yaml:"formats"`

	Items []Item `yaml:"items"`
}

// Load reads and validates the book configuration in the project root.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read book config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse book config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid book config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "_book"
	}
	if c.Freeze == "" {
		c.Freeze = string(freeze.PolicyAuto)
	}
	if len(c.Formats) == 0 {
		c.Formats = map[string]map[string]any{"html": {}}
	}
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Items, validation.Required.Error("book has no items"), validation.By(validateItems)),
		validation.Field(&c.Freeze, validation.By(validatePolicy)),
		validation.Field(&c.Index, validation.By(validateRelPath)),
		validation.Field(&c.OutputDir, validation.Required),
	)
}

func validatePolicy(value any) error {
	s, _ := value.(string)
	_, err := freeze.ParsePolicy(s)
	return err
}

func validateItems(value any) error {
	items, _ := value.([]Item)
	for idx, item := range items {
		switch item.Kind {
		case KindChapter, KindAppendix:
			if err := validateRelPath(item.Document.Path); err != nil {
				return fmt.Errorf("item %d: %w", idx+1, err)
			}
			if item.Document.Path == "" {
				return fmt.Errorf("item %d: %s path must not be empty", idx+1, item.Kind)
			}
		case KindPart:
			if strings.TrimSpace(item.Text) == "" {
				return fmt.Errorf("item %d: part display text must not be empty", idx+1)
			}
		default:
			return fmt.Errorf("item %d: unknown kind %q", idx+1, item.Kind)
		}
	}
	return nil
}

func validateRelPath(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if filepath.IsAbs(s) {
		return fmt.Errorf("path %q must be relative to the book root", s)
	}
	if strings.HasPrefix(filepath.ToSlash(filepath.Clean(s)), "..") {
		return fmt.Errorf("path %q escapes the book root", s)
	}
	return nil
}

// Documents returns every backing document in item order, with the index
// document (when configured and not already listed) prepended.
func (c *Config) Documents() []engine.Document {
	var docs []engine.Document
	seen := map[string]struct{}{}
	add := func(d engine.Document) {
		if _, ok := seen[d.Path]; ok {
			return
		}
		seen[d.Path] = struct{}{}
		docs = append(docs, d)
	}
	if c.Index != "" {
		add(engine.Document{Path: c.Index})
	}
	for _, item := range c.Items {
		if item.HasDocument() {
			add(item.Document)
		}
	}
	return docs
}

// TargetFormats resolves the configured formats into immutable TargetFormat
// values, sorted by name for deterministic iteration.
func (c *Config) TargetFormats() []engine.TargetFormat {
	names := make([]string, 0, len(c.Formats))
	for name := range c.Formats {
		names = append(names, name)
	}
	sort.Strings(names)

	formats := make([]engine.TargetFormat, 0, len(names))
	for _, name := range names {
		f := engine.TargetFormat{Name: name, Options: c.Formats[name]}
		formats = append(formats, f.Clone())
	}
	return formats
}

// Policy returns the validated freeze policy.
func (c *Config) Policy() freeze.Policy {
	p, err := freeze.ParsePolicy(c.Freeze)
	if err != nil {
		return freeze.PolicyAuto
	}
	return p
}

// OutputBaseName derives the merged document's base filename from the book
// title, falling back to the project root directory name.
func (c *Config) OutputBaseName(root string) string {
	if s := Slugify(c.Title); s != "" {
		return s
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	if s := Slugify(filepath.Base(abs)); s != "" {
		return s
	}
	return "book"
}
