package schemast

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reoring/schemast/loader"
)

// Config is the file form of Options. Unknown keys are rejected.
//
//	target: go
//	goPackage: pets
//	unreachableDefinitions: true
//	httpTimeout: 10s
type Config struct {
	Cwd                    string            `yaml:"cwd"`
	Target                 string            `yaml:"target"`
	GoPackage              string            `yaml:"goPackage"`
	BannerComment          string            `yaml:"bannerComment"`
	EnableConstEnums       bool              `yaml:"enableConstEnums"`
	StrictIndexSignatures  bool              `yaml:"strictIndexSignatures"`
	UnreachableDefinitions bool              `yaml:"unreachableDefinitions"`
	UnknownAny             bool              `yaml:"unknownAny"`
	ClosedObjects          bool              `yaml:"closedObjects"`
	ContinueOnError        bool              `yaml:"continueOnError"`
	Prefetch               bool              `yaml:"prefetch"`
	HTTPTimeout            time.Duration     `yaml:"httpTimeout"`
	HTTPHeaders            map[string]string `yaml:"httpHeaders"`
}

// DecodeConfig reads one YAML document. An empty input yields a zero Config.
func DecodeConfig(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var c Config
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("schemast: config: %w", err)
	}
	if _, err := ParseTarget(c.Target); err != nil {
		return nil, fmt.Errorf("schemast: config: %w", err)
	}
	return &c, nil
}

// LoadConfig reads the config file at path.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schemast: config: %w", err)
	}
	defer f.Close()
	return DecodeConfig(f)
}

// Apply copies the configured values into opts. Fields already set in opts
// win over an empty config value; booleans are or-ed.
func (c *Config) Apply(opts *Options) error {
	if c.Cwd != "" {
		opts.Cwd = c.Cwd
	}
	if c.Target != "" {
		t, err := ParseTarget(c.Target)
		if err != nil {
			return err
		}
		opts.Target = t
	}
	if c.GoPackage != "" {
		opts.GoPackage = c.GoPackage
	}
	if c.BannerComment != "" {
		opts.BannerComment = c.BannerComment
	}
	opts.EnableConstEnums = opts.EnableConstEnums || c.EnableConstEnums
	opts.StrictIndexSignatures = opts.StrictIndexSignatures || c.StrictIndexSignatures
	opts.UnreachableDefinitions = opts.UnreachableDefinitions || c.UnreachableDefinitions
	opts.UnknownAny = opts.UnknownAny || c.UnknownAny
	opts.ClosedObjects = opts.ClosedObjects || c.ClosedObjects
	opts.ContinueOnError = opts.ContinueOnError || c.ContinueOnError
	opts.Prefetch = opts.Prefetch || c.Prefetch
	if (c.HTTPTimeout > 0 || len(c.HTTPHeaders) > 0) && opts.Loader == nil && opts.Cache == nil {
		h := &loader.HTTPLoader{Timeout: c.HTTPTimeout}
		if len(c.HTTPHeaders) > 0 {
			h.Header = make(map[string][]string, len(c.HTTPHeaders))
			for k, v := range c.HTTPHeaders {
				h.Header.Set(k, v)
			}
		}
		opts.Loader = loader.Mux{HTTP: h}
	}
	return nil
}
