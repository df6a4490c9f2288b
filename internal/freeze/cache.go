// Package freeze implements the incremental execution cache: a per-project,
// content-addressed store mapping a fingerprint to a previously produced
// ExecutionResult plus copies of its resource files.
//
// The cache is an optimization, not a source of truth: corrupted or
// unreadable entries are treated as misses, logged, and never fail a build.
package freeze

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/bookbinder/internal/engine"
	"git.home.luguber.info/inful/bookbinder/internal/fingerprint"
	"git.home.luguber.info/inful/bookbinder/internal/logfields"
)

const cacheDirName = "freeze"

// Entry is the persisted pairing of fingerprint and execution result.
// An entry on disk is either complete or absent, never partial: writes go
// through a staging directory followed by a single rename.
type Entry struct {
	Fingerprint string                  `json:"fingerprint"`
	CreatedAt   time.Time               `json:"created_at"`
	Result      *engine.ExecutionResult `json:"result"`
}

// EntryInfo is a summary row for cache inspection.
type EntryInfo struct {
	Document    string    `json:"document"`
	Format      string    `json:"format"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	Resources   int       `json:"resources"`
}

// Cache is the on-disk freeze store for one project. Safe for concurrent
// use within a process; cross-process safety relies on the atomic-rename
// write discipline.
type Cache struct {
	root   string // project root
	dir    string // <root>/.bookbinder/freeze
	mu     sync.Mutex
	logger *slog.Logger
}

// NewCache creates a cache rooted at the project directory.
func NewCache(projectRoot string) *Cache {
	return &Cache{
		root:   projectRoot,
		dir:    filepath.Join(projectRoot, ".bookbinder", cacheDirName),
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (c *Cache) WithLogger(logger *slog.Logger) *Cache {
	c.logger = logger
	return c
}

// Dir returns the cache directory (for inspection commands).
func (c *Cache) Dir() string { return c.dir }

// slot returns the canonical directory for a (document, format) pair.
// Layout: freeze/<docSlug>/<format>/{entry.json,resources/...}. Slots are
// independently removable in whole or in part without affecting others.
func (c *Cache) slot(doc engine.Document, format string) string {
	return filepath.Join(c.dir, doc.Slug(), format)
}

// Lookup returns a stored result if the policy allows reuse.
//
// Under PolicyNever it always misses. Under PolicyAuto the recorded
// fingerprint must equal fp exactly. Under PolicyAlways the most recent
// entry for the pair is returned even if its fingerprint differs — callers
// opt into reproducibility over freshness.
func (c *Cache) Lookup(doc engine.Document, format engine.TargetFormat, fp fingerprint.Fingerprint, policy Policy) (*engine.ExecutionResult, bool) {
	if policy == PolicyNever {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	slot := c.slot(doc, format.Name)
	entry, err := readEntry(slot)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			// Corrupt entry: recover locally as a miss.
			c.logger.Warn("Discarding corrupt freeze entry",
				logfields.Document(doc.Path),
				logfields.Format(format.Name),
				logfields.Error(err))
		}
		return nil, false
	}

	if policy == PolicyAuto && entry.Fingerprint != string(fp) {
		c.logger.Debug("Freeze entry stale",
			logfields.Document(doc.Path),
			logfields.Format(format.Name),
			logfields.Fingerprint(entry.Fingerprint))
		return nil, false
	}

	if entry.Result == nil {
		c.logger.Warn("Freeze entry has no result payload",
			logfields.Document(doc.Path), logfields.Format(format.Name))
		return nil, false
	}

	// Externally deleted resource copies make the entry unusable.
	if err := c.restoreResources(slot, entry.Result); err != nil {
		c.logger.Warn("Freeze entry resources unusable, treating as miss",
			logfields.Document(doc.Path),
			logfields.Format(format.Name),
			logfields.Error(err))
		return nil, false
	}

	c.logger.Debug("Freeze hit",
		logfields.Document(doc.Path),
		logfields.Format(format.Name),
		logfields.Policy(string(policy)))
	return entry.Result.Clone(), true
}

// Store persists a successful execution result. The entry and its resource
// copies become visible atomically: everything is written to a staging
// directory, then renamed into the canonical slot.
func (c *Cache) Store(doc engine.Document, format engine.TargetFormat, fp fingerprint.Fingerprint, result *engine.ExecutionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o750); err != nil {
		return fmt.Errorf("create freeze directory: %w", err)
	}

	staging := filepath.Join(c.dir, ".stage-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o750); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging) // no-op after successful rename

	entry := Entry{
		Fingerprint: string(fp),
		CreatedAt:   time.Now().UTC(),
		Result:      result.Clone(),
	}
	data, err := json.MarshalIndent(&entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal freeze entry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, "entry.json"), data, 0o600); err != nil {
		return fmt.Errorf("write freeze entry: %w", err)
	}

	for _, rel := range result.Resources {
		src := filepath.Join(c.root, filepath.FromSlash(rel))
		dst := filepath.Join(staging, "resources", filepath.FromSlash(rel))
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("copy resource %s into freeze: %w", rel, err)
		}
	}

	slot := c.slot(doc, format.Name)
	if err := os.MkdirAll(filepath.Dir(slot), 0o750); err != nil {
		return fmt.Errorf("create slot parent: %w", err)
	}
	if err := os.RemoveAll(slot); err != nil {
		return fmt.Errorf("clear previous slot: %w", err)
	}
	if err := os.Rename(staging, slot); err != nil {
		return fmt.Errorf("activate freeze entry: %w", err)
	}

	c.logger.Debug("Freeze entry stored",
		logfields.Document(doc.Path),
		logfields.Format(format.Name),
		logfields.Fingerprint(string(fp)))
	return nil
}

// Invalidate removes any stored entry for the pair. Used when a document
// was deleted or policy is forced to never.
func (c *Cache) Invalidate(doc engine.Document, formatName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if formatName == "" {
		return os.RemoveAll(filepath.Join(c.dir, doc.Slug()))
	}
	return os.RemoveAll(c.slot(doc, formatName))
}

// Clear removes the entire cache.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(c.dir)
}

// Status lists all complete entries currently in the cache.
func (c *Cache) Status() ([]EntryInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var infos []EntryInfo
	docDirs, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read freeze directory: %w", err)
	}
	for _, docDir := range docDirs {
		if !docDir.IsDir() {
			continue
		}
		formatDirs, err := os.ReadDir(filepath.Join(c.dir, docDir.Name()))
		if err != nil {
			continue
		}
		for _, fd := range formatDirs {
			if !fd.IsDir() {
				continue
			}
			slot := filepath.Join(c.dir, docDir.Name(), fd.Name())
			entry, err := readEntry(slot)
			if err != nil || entry.Result == nil {
				continue
			}
			infos = append(infos, EntryInfo{
				Document:    entry.Result.Document.Path,
				Format:      fd.Name(),
				Fingerprint: entry.Fingerprint,
				CreatedAt:   entry.CreatedAt,
				Resources:   len(entry.Result.Resources),
			})
		}
	}
	return infos, nil
}

// restoreResources verifies the slot's resource copies and restores any
// project file that was deleted since the entry was stored. A missing cache
// copy is an error (corruption), surfaced to the caller as a miss.
func (c *Cache) restoreResources(slot string, result *engine.ExecutionResult) error {
	for _, rel := range result.Resources {
		cached := filepath.Join(slot, "resources", filepath.FromSlash(rel))
		if _, err := os.Stat(cached); err != nil {
			return fmt.Errorf("cached resource %s: %w", rel, err)
		}
		original := filepath.Join(c.root, filepath.FromSlash(rel))
		if _, err := os.Stat(original); errors.Is(err, fs.ErrNotExist) {
			if err := copyFile(cached, original); err != nil {
				return fmt.Errorf("restore resource %s: %w", rel, err)
			}
			c.logger.Debug("Restored resource from freeze", logfields.Path(rel))
		}
	}
	return nil
}

func readEntry(slot string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(slot, "entry.json"))
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal freeze entry: %w", err)
	}
	return &entry, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
