package content

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"lodyland/pkg/logger"
)

//go:embed schema/*.json
var schemaFS embed.FS

//go:embed defaults/*.yml
var defaultsFS embed.FS

// Document names, in load order. quests.yml may be absent.
var documents = []string{"resources", "cards", "lands", "levels", "quests"}

var optionalDocuments = map[string]bool{"quests": true}

// Loader reads and validates content documents
type Loader struct {
	schemas  map[string]*jsonschema.Schema
	validate bool
	logger   *logger.ColoredLogger
}

// NewLoader compiles the embedded JSON schemas. With validate false the
// documents are only decoded.
func NewLoader(validate bool) (*Loader, error) {
	l := &Loader{
		schemas:  make(map[string]*jsonschema.Schema),
		validate: validate,
		logger:   logger.ContentLogger,
	}
	if !validate {
		return l, nil
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	for _, doc := range documents {
		data, err := schemaFS.ReadFile("schema/" + doc + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to read %s schema: %w", doc, err)
		}
		if err := c.AddResource(schemaURL(doc), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to add %s schema: %w", doc, err)
		}
	}
	for _, doc := range documents {
		s, err := c.Compile(schemaURL(doc))
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", doc, err)
		}
		l.schemas[doc] = s
	}
	return l, nil
}

func schemaURL(doc string) string {
	return "mem://lodyland/schema/" + doc + ".json"
}

// Load reads <doc>.yml for every document from fsys and builds a Registry
func (l *Loader) Load(fsys fs.FS) (*Registry, error) {
	var set Set
	for _, doc := range documents {
		data, err := fs.ReadFile(fsys, doc+".yml")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && optionalDocuments[doc] {
				l.logger.Debug("No %s.yml, skipping", doc)
				continue
			}
			return nil, fmt.Errorf("failed to read %s.yml: %w", doc, err)
		}
		if err := l.check(doc, data); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("failed to decode %s.yml: %w", doc, err)
		}
	}

	reg, err := NewRegistry(set)
	if err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	l.logger.Info("Loaded content: %v (%d warnings)", reg.Summary(), len(reg.warnings))
	return reg, nil
}

// LoadDir loads content from a directory on disk
func (l *Loader) LoadDir(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content path %s is not a directory", dir)
	}
	return l.Load(os.DirFS(dir))
}

// LoadDefaults loads the content set compiled into the binary
func (l *Loader) LoadDefaults() (*Registry, error) {
	sub, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		return nil, err
	}
	return l.Load(sub)
}

// check validates one YAML document against its schema
func (l *Loader) check(doc string, data []byte) error {
	s, ok := l.schemas[doc]
	if !ok {
		return nil
	}
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse %s.yml: %w", doc, err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	// schema validation wants plain JSON values
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to convert %s.yml: %w", doc, err)
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return fmt.Errorf("failed to convert %s.yml: %w", doc, err)
	}

	if err := s.Validate(value); err != nil {
		return fmt.Errorf("%s.yml does not match schema: %w", doc, err)
	}
	return nil
}

// Defaults loads the embedded content set with schema validation
func Defaults() (*Registry, error) {
	l, err := NewLoader(true)
	if err != nil {
		return nil, err
	}
	return l.LoadDefaults()
}
