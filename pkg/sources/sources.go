package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package sources describes the price endpoints the client reads from.

// Source is a single named price endpoint.
type Source struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	SourceURL string         `json:"source_url" yaml:"source_url"`
	Config    map[string]any `json:"config" yaml:"config"`
}

type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// Registry is an immutable, ordered set of sources keyed by id.
type Registry struct {
	sources []Source
	idx     map[string]Source
}

// DefaultSourceID names the source synthesized from a single configured URL.
const DefaultSourceID = "ibex"

// Single builds a registry holding one source for rawURL.
func Single(rawURL string) (*Registry, error) {
	return newRegistry([]Source{{
		ID:        DefaultSourceID,
		Name:      "IBEX day-ahead prices",
		SourceURL: rawURL,
	}})
}

// LoadRegistry loads the sources registry from a YAML or JSON file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(reg.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}
	return newRegistry(reg.Sources)
}

func newRegistry(list []Source) (*Registry, error) {
	r := &Registry{
		sources: make([]Source, 0, len(list)),
		idx:     make(map[string]Source, len(list)),
	}
	for i := range list {
		s := sanitizeSource(list[i])
		if err := validateSource(s); err != nil {
			return nil, fmt.Errorf("source[%d]: %w", i, err)
		}
		if _, exists := r.idx[s.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", s.ID)
		}
		r.sources = append(r.sources, s)
		r.idx[s.ID] = s
	}
	return r, nil
}

// All returns a copy of the sources in file order.
func (r *Registry) All() []Source {
	if r == nil || len(r.sources) == 0 {
		return nil
	}
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ByID returns the source with the given id, if present.
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	s, ok := r.idx[strings.TrimSpace(id)]
	return s, ok
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		reg, err := unmarshalRegistry(d.name, data, d.fn)
		if err == nil {
			return reg, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return registryFile{}, fmt.Errorf("sources file format not recognized (expected YAML or JSON): %w", lastErr)
	}
	return registryFile{}, fmt.Errorf("sources file extension %q not supported (expected .yaml, .yml or .json)", ext)
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s sources: %w", name, err)
	}
	return reg, nil
}

func sanitizeSource(s Source) Source {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.SourceURL = strings.TrimSpace(s.SourceURL)
	if s.Config == nil {
		s.Config = map[string]any{}
	}
	return s
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.SourceURL == "" {
		return fmt.Errorf("source_url is required for source %q", s.ID)
	}
	u, err := url.Parse(s.SourceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source_url %q for source %q must be an absolute URL", s.SourceURL, s.ID)
	}
	return nil
}
