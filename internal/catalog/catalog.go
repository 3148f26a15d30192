package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/finapp/advisor-engine/internal/models"
)

// Common errors
var (
	ErrUnknownAdvisor = errors.New("unknown advisor")
	ErrStepOutOfRange = errors.New("step index out of range")
)

// Catalog holds the immutable advisor definitions. Loaded once at startup;
// read-only afterwards.
type Catalog struct {
	mu       sync.RWMutex
	advisors map[string]*models.AdvisorDefinition
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{
		advisors: make(map[string]*models.AdvisorDefinition),
	}
}

// LoadFromDir loads all advisor YAML files from a directory. Unlike template
// loaders that warn and skip, a file that fails validation aborts the load:
// catalog content is the product here and a half-loaded catalog would route
// users into UnknownAdvisor at runtime.
func (c *Catalog) LoadFromDir(dir string) error {
	slog.Info("loading advisor catalog", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	if len(files) == 0 {
		return fmt.Errorf("no advisor definitions found in %s", dir)
	}

	for _, file := range files {
		if err := c.LoadFromFile(file); err != nil {
			return fmt.Errorf("advisor file %s: %w", filepath.Base(file), err)
		}
	}

	slog.Info("advisor catalog loaded", "advisors", len(files))
	return nil
}

// LoadFromFile loads and validates a single advisor definition. The advisor's
// Version is a hash of the file content, so any weight or wording change
// produces a new version id.
func (c *Catalog) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var def models.AdvisorDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := Validate(&def); err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	def.Version = hex.EncodeToString(sum[:])[:12]

	c.mu.Lock()
	c.advisors[def.ID] = &def
	c.mu.Unlock()

	slog.Info("advisor loaded", "id", def.ID, "steps", def.StepCount(), "version", def.Version)
	return nil
}

// Add programmatically registers an advisor definition. The definition must
// already be valid; Add assigns a version hash if none is set.
func (c *Catalog) Add(def *models.AdvisorDefinition) error {
	if err := Validate(def); err != nil {
		return err
	}
	if def.Version == "" {
		encoded, err := yaml.Marshal(def)
		if err != nil {
			return fmt.Errorf("failed to hash definition: %w", err)
		}
		sum := sha256.Sum256(encoded)
		def.Version = hex.EncodeToString(sum[:])[:12]
	}

	c.mu.Lock()
	c.advisors[def.ID] = def
	c.mu.Unlock()
	return nil
}

// Get returns the advisor definition for the given id.
func (c *Catalog) Get(advisorID string) (*models.AdvisorDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.advisors[advisorID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAdvisor, advisorID)
	}
	return def, nil
}

// Step returns the question step at the given index for an advisor.
func (c *Catalog) Step(advisorID string, index int) (*models.QuestionStep, error) {
	def, err := c.Get(advisorID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= def.StepCount() {
		return nil, fmt.Errorf("%w: %s step %d of %d", ErrStepOutOfRange, advisorID, index, def.StepCount())
	}
	return &def.Steps[index], nil
}

// StepCount returns the number of steps for an advisor.
func (c *Catalog) StepCount(advisorID string) (int, error) {
	def, err := c.Get(advisorID)
	if err != nil {
		return 0, err
	}
	return def.StepCount(), nil
}

// List returns all loaded advisors ordered by id.
func (c *Catalog) List() []*models.AdvisorDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*models.AdvisorDefinition, 0, len(c.advisors))
	for _, def := range c.advisors {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
