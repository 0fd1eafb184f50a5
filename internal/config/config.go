// Package config loads controller instance descriptions from YAML files and
// flattened device trees.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinyrange/plic/internal/plic"
)

// DefaultMaxPriority is used when a description does not state a ceiling.
const DefaultMaxPriority = 7

// File is the on-disk platform description.
type File struct {
	// TableSize is the number of second-level dispatch slots. Zero sizes
	// the table to fit every controller.
	TableSize   int          `yaml:"table-size"`
	Controllers []Controller `yaml:"controllers"`
}

// Controller describes one controller instance.
type Controller struct {
	Name        string  `yaml:"name"`
	Base        uint64  `yaml:"base"`
	NumSources  uint32  `yaml:"num-sources"`
	MaxPriority *uint32 `yaml:"max-priority"`
	ParentIRQ   uint32  `yaml:"parent-irq"`
	TableOffset *uint32 `yaml:"table-offset"`
	EdgeTrigger bool    `yaml:"edge-trigger"`
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a YAML description. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(f.Controllers) == 0 {
		return nil, fmt.Errorf("%w: no controllers defined", plic.ErrConfig)
	}
	return &f, nil
}

// Configs converts the description into validated controller configs.
// Controllers without an explicit table-offset are packed one after
// another in declaration order.
func (f *File) Configs() ([]plic.Config, error) {
	var (
		cfgs []plic.Config
		next uint32
	)
	for i, c := range f.Controllers {
		cfg := plic.Config{
			Name:        c.Name,
			BaseAddress: c.Base,
			NumSources:  c.NumSources,
			MaxPriority: DefaultMaxPriority,
			ParentIRQ:   c.ParentIRQ,
			TableOffset: next,
			EdgeTrigger: c.EdgeTrigger,
		}
		if c.MaxPriority != nil {
			cfg.MaxPriority = *c.MaxPriority
		}
		if c.TableOffset != nil {
			cfg.TableOffset = *c.TableOffset
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("controller %d: %w", i, err)
		}
		next = cfg.TableOffset + cfg.NumSources
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}

// TableSlots returns the table size needed for cfgs, or f.TableSize when
// that is larger.
func (f *File) TableSlots(cfgs []plic.Config) int {
	return max(f.TableSize, RequiredSlots(cfgs))
}

// RequiredSlots is the smallest table that covers every controller's range.
func RequiredSlots(cfgs []plic.Config) int {
	size := 0
	for _, cfg := range cfgs {
		size = max(size, int(cfg.TableOffset+cfg.NumSources))
	}
	return size
}
