package agents

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Spec describes one agent. Specs are built once when the catalog loads and
// shared by pointer; callers must not modify them.
type Spec struct {
	Capability   Capability
	Name         string
	Instructions string
	Handoffs     []Capability
	Model        string
}

// Catalog is the validated set of agent specs: one router plus one spec per
// leaf capability.
type Catalog struct {
	specs map[Capability]*Spec
}

type catalogFile struct {
	Agents []specFile `yaml:"agents"`
}

type specFile struct {
	Capability   string   `yaml:"capability"`
	Name         string   `yaml:"name"`
	Instructions string   `yaml:"instructions"`
	Handoffs     []string `yaml:"handoffs"`
	Model        string   `yaml:"model"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	cat, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded agent catalog: %v", err))
	}
	return cat
}

// LoadCatalog reads a catalog override from path, or returns the built-in
// catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return ParseCatalog(defaultCatalogYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent catalog: %w", err)
	}
	cat, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("agent catalog %s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse agent catalog: %w", err)
	}

	cat := &Catalog{specs: make(map[Capability]*Spec, len(file.Agents))}
	for i, entry := range file.Agents {
		spec, err := entry.toSpec()
		if err != nil {
			return nil, fmt.Errorf("agents[%d]: %w", i, err)
		}
		if _, exists := cat.specs[spec.Capability]; exists {
			return nil, fmt.Errorf("agents[%d]: duplicate capability %s", i, spec.Capability)
		}
		cat.specs[spec.Capability] = spec
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (f specFile) toSpec() (*Spec, error) {
	capability, err := ParseCapability(f.Capability)
	if err != nil {
		return nil, err
	}
	instructions := strings.TrimSpace(f.Instructions)
	if instructions == "" {
		return nil, fmt.Errorf("%s: instructions required", capability)
	}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		name = capability.String()
	}
	spec := &Spec{
		Capability:   capability,
		Name:         name,
		Instructions: instructions,
		Model:        strings.TrimSpace(f.Model),
	}
	for _, raw := range f.Handoffs {
		target, err := ParseCapability(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: handoff: %w", capability, err)
		}
		spec.Handoffs = append(spec.Handoffs, target)
	}
	return spec, nil
}

// validate enforces the one-level dispatch table: only the router hands off,
// and it hands off to each leaf exactly once.
func (c *Catalog) validate() error {
	router, ok := c.specs[Router]
	if !ok {
		return errors.New("agent catalog: router spec missing")
	}
	for _, leaf := range Leaves() {
		spec, ok := c.specs[leaf]
		if !ok {
			return fmt.Errorf("agent catalog: %s spec missing", leaf)
		}
		if len(spec.Handoffs) > 0 {
			return fmt.Errorf("agent catalog: %s may not declare handoffs", leaf)
		}
	}
	seen := make(map[Capability]struct{}, len(router.Handoffs))
	for _, target := range router.Handoffs {
		if !target.IsLeaf() {
			return fmt.Errorf("agent catalog: router may not hand off to %s", target)
		}
		if _, dup := seen[target]; dup {
			return fmt.Errorf("agent catalog: router lists %s twice", target)
		}
		seen[target] = struct{}{}
	}
	if len(seen) != len(Leaves()) {
		return fmt.Errorf("agent catalog: router must hand off to %s", joinCapabilities(Leaves()))
	}
	return nil
}

// Spec returns the spec for capability.
func (c *Catalog) Spec(capability Capability) (*Spec, bool) {
	spec, ok := c.specs[capability]
	return spec, ok
}

// Router returns the router spec.
func (c *Catalog) Router() *Spec {
	return c.specs[Router]
}

// CanHandOff reports whether the router's dispatch table includes target.
func (c *Catalog) CanHandOff(target Capability) bool {
	for _, handoff := range c.specs[Router].Handoffs {
		if handoff == target {
			return true
		}
	}
	return false
}

func joinCapabilities(caps []Capability) string {
	names := make([]string, 0, len(caps))
	for _, capability := range caps {
		names = append(names, capability.String())
	}
	return strings.Join(names, ", ")
}
