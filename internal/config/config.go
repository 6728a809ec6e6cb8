// Package config loads the optional solveur configuration file.
//
// The file is YAML, validated against an embedded JSON Schema before it is
// decoded. API keys are never read from it; they come from the environment.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/solveur/internal/llm"
	"github.com/abhisek/solveur/internal/topic"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema://solveur-config.json"

// File mirrors config.yaml. Zero values mean "not set".
type File struct {
	Provider      string  `yaml:"provider"`
	Model         string  `yaml:"model"`
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float64 `yaml:"temperature"`
	Topic         string  `yaml:"topic"`
	LogFile       string  `yaml:"log_file"`
	LogLevel      string  `yaml:"log_level"`
	Listen        string  `yaml:"listen"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse config schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add config schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// DefaultPath resolves the config file path in priority order:
// 1. SOLVEUR_CONFIG environment variable
// 2. $XDG_CONFIG_HOME/solveur/config.yaml
// 3. ~/.config/solveur/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv("SOLVEUR_CONFIG"); p != "" {
		return p, nil
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "solveur", "config.yaml"), nil
}

// DefaultLogPath returns $XDG_STATE_HOME/solveur/solveur.log, falling back
// to ~/.local/state.
func DefaultLogPath() (string, error) {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, "solveur", "solveur.log"), nil
}

// Load reads and validates the file at path. A missing file is not an
// error and yields an empty File.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse validates YAML content against the schema and decodes it.
func Parse(data []byte) (*File, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if raw == nil {
		return &File{}, nil
	}

	// The validator wants JSON values; round-trip through encoding/json so
	// YAML scalars become json.Number, strings and bools.
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert config: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(js))
	if err != nil {
		return nil, fmt.Errorf("convert config: %w", err)
	}

	sch, err := schema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if f.Topic != "" {
		if _, err := topic.Parse(f.Topic); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	return &f, nil
}

// ApplyLLM overlays the file's provider settings on cfg.
func (f *File) ApplyLLM(cfg llm.Config) llm.Config {
	if f.Provider != "" {
		cfg.Provider = f.Provider
	}
	if f.Model != "" {
		cfg.SetModel(f.Model)
	}
	if f.OpenAIBaseURL != "" {
		cfg.OpenAI.BaseURL = f.OpenAIBaseURL
	}
	return cfg
}

// DefaultTopic returns the configured starting topic, or topic.Default().
func (f *File) DefaultTopic() topic.Topic {
	if f.Topic == "" {
		return topic.Default()
	}
	t, err := topic.Parse(f.Topic)
	if err != nil {
		return topic.Default()
	}
	return t
}
