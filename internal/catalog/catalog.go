// Package catalog serves the templates and tones used to compose prompts.
//
// Built-in entries are embedded in the binary. Custom entries live in a YAML
// file and override built-ins that share an id.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/fsutil"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/logging"
)

//go:embed builtin.yaml
var builtinYAML []byte

// maxCatalogSize caps the custom catalog file.
const maxCatalogSize = 4 << 20

// Error codes raised by catalog mutations.
const (
	CodeBuiltinReadOnly = "BUILTIN_READ_ONLY"
	CodeInvalidEntry    = "INVALID_ENTRY"
)

// File is the on-disk shape of a catalog file.
type File struct {
	Templates []core.Template `yaml:"templates"`
	Tones     []core.Tone     `yaml:"tones"`
}

// Catalog implements core.TemplateStore and core.ToneStore.
type Catalog struct {
	path   string
	logger *logging.Logger

	builtinTemplates map[string]core.Template
	builtinTones     map[string]core.Tone

	mu              sync.RWMutex
	customTemplates map[string]core.Template
	customTones     map[string]core.Tone
}

// Load reads the built-in catalog and, when path is set, the custom file.
// A missing custom file is not an error.
func Load(path string, logger *logging.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var builtin File
	if err := yaml.Unmarshal(builtinYAML, &builtin); err != nil {
		return nil, fmt.Errorf("parsing built-in catalog: %w", err)
	}

	c := &Catalog{
		path:             path,
		logger:           logger,
		builtinTemplates: make(map[string]core.Template, len(builtin.Templates)),
		builtinTones:     make(map[string]core.Tone, len(builtin.Tones)),
		customTemplates:  make(map[string]core.Template),
		customTones:      make(map[string]core.Tone),
	}
	for _, t := range builtin.Templates {
		t.BuiltIn = true
		c.builtinTemplates[t.ID] = t
	}
	for _, t := range builtin.Tones {
		t.BuiltIn = true
		c.builtinTones[t.ID] = t
	}

	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Path returns the custom catalog file path.
func (c *Catalog) Path() string {
	return c.path
}

// Reload re-reads the custom file.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}

	custom, err := readFile(c.path)
	if err != nil {
		return err
	}

	templates := make(map[string]core.Template, len(custom.Templates))
	for _, t := range custom.Templates {
		if t.ID == "" {
			c.logger.Warn("catalog: skipping template without id", "path", c.path)
			continue
		}
		t.BuiltIn = false
		templates[t.ID] = t
	}
	tones := make(map[string]core.Tone, len(custom.Tones))
	for _, t := range custom.Tones {
		if t.ID == "" {
			c.logger.Warn("catalog: skipping tone without id", "path", c.path)
			continue
		}
		t.BuiltIn = false
		tones[t.ID] = t
	}

	c.mu.Lock()
	c.customTemplates = templates
	c.customTones = tones
	c.mu.Unlock()

	c.logger.Debug("catalog: loaded custom entries",
		"path", c.path,
		"templates", len(templates),
		"tones", len(tones),
	)
	return nil
}

func readFile(path string) (File, error) {
	var f File
	data, err := fsutil.ReadFileScoped(path, maxCatalogSize)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return f, nil
}

// GetTemplate implements core.TemplateStore.
func (c *Catalog) GetTemplate(id string) (core.Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.customTemplates[id]; ok {
		return t, true
	}
	t, ok := c.builtinTemplates[id]
	return t, ok
}

// GetTone implements core.ToneStore.
func (c *Catalog) GetTone(id string) (core.Tone, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.customTones[id]; ok {
		return t, true
	}
	t, ok := c.builtinTones[id]
	return t, ok
}

// Templates returns every template sorted by id. The custom sentinel comes first.
func (c *Catalog) Templates() []core.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()

	merged := make(map[string]core.Template, len(c.builtinTemplates)+len(c.customTemplates))
	for id, t := range c.builtinTemplates {
		merged[id] = t
	}
	for id, t := range c.customTemplates {
		merged[id] = t
	}
	out := make([]core.Template, 0, len(merged))
	for _, t := range merged {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID == core.NoTemplateID || out[j].ID == core.NoTemplateID {
			return out[i].ID == core.NoTemplateID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Tones returns every tone sorted by id. The default tone comes first.
func (c *Catalog) Tones() []core.Tone {
	c.mu.RLock()
	defer c.mu.RUnlock()

	merged := make(map[string]core.Tone, len(c.builtinTones)+len(c.customTones))
	for id, t := range c.builtinTones {
		merged[id] = t
	}
	for id, t := range c.customTones {
		merged[id] = t
	}
	out := make([]core.Tone, 0, len(merged))
	for _, t := range merged {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID == core.DefaultToneID || out[j].ID == core.DefaultToneID {
			return out[i].ID == core.DefaultToneID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SuggestTemplates returns template ids fuzzily matching query, best first.
func (c *Catalog) SuggestTemplates(query string) []string {
	templates := c.Templates()
	ids := make([]string, len(templates))
	for i, t := range templates {
		ids[i] = t.ID
	}
	return suggest(query, ids)
}

// SuggestTones returns tone ids fuzzily matching query, best first.
func (c *Catalog) SuggestTones(query string) []string {
	tones := c.Tones()
	ids := make([]string, len(tones))
	for i, t := range tones {
		ids[i] = t.ID
	}
	return suggest(query, ids)
}

func suggest(query string, ids []string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	matches := fuzzy.Find(query, ids)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}

// SaveTemplate adds or replaces a custom template and persists the file.
func (c *Catalog) SaveTemplate(t core.Template) error {
	t.ID = strings.TrimSpace(t.ID)
	if t.ID == "" || strings.TrimSpace(t.Sections.Instructions) == "" {
		return core.ErrValidation(CodeInvalidEntry, "template needs an id and instructions")
	}
	if t.ID == core.NoTemplateID {
		return core.ErrValidation(CodeBuiltinReadOnly, fmt.Sprintf("template id %q is reserved", t.ID))
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	t.BuiltIn = false

	c.mu.Lock()
	defer c.mu.Unlock()
	c.customTemplates[t.ID] = t
	return c.persistLocked()
}

// DeleteTemplate removes a custom template. Built-ins cannot be deleted.
func (c *Catalog) DeleteTemplate(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.customTemplates[id]; !ok {
		if _, builtin := c.builtinTemplates[id]; builtin {
			return core.ErrValidation(CodeBuiltinReadOnly, fmt.Sprintf("template %q is built in", id))
		}
		return core.ErrNotFound("template", id)
	}
	delete(c.customTemplates, id)
	return c.persistLocked()
}

// SaveTone adds or replaces a custom tone and persists the file.
func (c *Catalog) SaveTone(t core.Tone) error {
	t.ID = strings.TrimSpace(t.ID)
	if t.ID == "" {
		return core.ErrValidation(CodeInvalidEntry, "tone needs an id")
	}
	if t.ID == core.DefaultToneID {
		return core.ErrValidation(CodeBuiltinReadOnly, fmt.Sprintf("tone id %q is reserved", t.ID))
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	t.BuiltIn = false

	c.mu.Lock()
	defer c.mu.Unlock()
	c.customTones[t.ID] = t
	return c.persistLocked()
}

// DeleteTone removes a custom tone. Built-ins cannot be deleted.
func (c *Catalog) DeleteTone(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.customTones[id]; !ok {
		if _, builtin := c.builtinTones[id]; builtin {
			return core.ErrValidation(CodeBuiltinReadOnly, fmt.Sprintf("tone %q is built in", id))
		}
		return core.ErrNotFound("tone", id)
	}
	delete(c.customTones, id)
	return c.persistLocked()
}

// persistLocked writes the custom entries. Caller holds c.mu.
func (c *Catalog) persistLocked() error {
	if c.path == "" {
		return core.ErrConfiguration(CodeInvalidEntry, "no custom catalog path configured")
	}

	f := File{
		Templates: make([]core.Template, 0, len(c.customTemplates)),
		Tones:     make([]core.Tone, 0, len(c.customTones)),
	}
	for _, t := range c.customTemplates {
		f.Templates = append(f.Templates, t)
	}
	for _, t := range c.customTones {
		f.Tones = append(f.Tones, t)
	}
	sort.Slice(f.Templates, func(i, j int) bool { return f.Templates[i].ID < f.Templates[j].ID })
	sort.Slice(f.Tones, func(i, j int) bool { return f.Tones[i].ID < f.Tones[j].ID })

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o750); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}
	if err := atomicWriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("writing catalog %s: %w", c.path, err)
	}
	c.logger.Info("catalog: saved", "path", c.path)
	return nil
}
