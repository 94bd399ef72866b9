// Package contracts maps Verified ID contract ids to the issuance payload
// strategy the Request Service expects for them.
//
// The Request Service requires a different request shape per contract and
// that shape cannot be derived from contract metadata, so the mapping is an
// explicit table. The table ships embedded in the binary and can be replaced
// by a YAML file with the same schema.
package contracts

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var defaultRegistry []byte

//go:embed registry.schema.json
var registrySchema []byte

// Kind selects how claims are supplied for a contract.
type Kind string

const (
	// KindPortalAttestation contracts take their claims from the attestation
	// mapping configured in the Entra portal; the payload carries no claims.
	KindPortalAttestation Kind = "portal-attestation"
	// KindSelfIssued contracts take a literal claims map from the registry.
	KindSelfIssued Kind = "self-issued"
	// KindDefault is used for contract ids missing from the registry.
	KindDefault Kind = "default"
)

// Strategy is the payload strategy for one contract.
type Strategy struct {
	ID       string
	Name     string
	Kind     Kind
	Claims   map[string]string
	AllowPIN bool
}

type registryFile struct {
	DefaultClaims map[string]string `yaml:"defaultClaims"`
	Contracts     []struct {
		ID       string            `yaml:"id"`
		Name     string            `yaml:"name"`
		Kind     Kind              `yaml:"kind"`
		AllowPIN *bool             `yaml:"allowPin"`
		Claims   map[string]string `yaml:"claims"`
	} `yaml:"contracts"`
}

// Registry is an immutable strategy table. It is safe for concurrent use.
type Registry struct {
	strategies    map[string]Strategy
	defaultClaims map[string]string
}

// LoadDefault returns the registry embedded in the binary.
func LoadDefault() (*Registry, error) {
	return Load(defaultRegistry)
}

// LoadFile reads a registry from path. An empty path loads the embedded default.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return LoadDefault()
	}
	data, err := os.ReadFile(path) // #nosec G304 - path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read contract registry: %w", err)
	}
	return Load(data)
}

// Load parses and validates a YAML registry document.
func Load(data []byte) (*Registry, error) {
	if err := validate(data); err != nil {
		return nil, err
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse contract registry: %w", err)
	}

	r := &Registry{
		strategies:    make(map[string]Strategy, len(file.Contracts)),
		defaultClaims: file.DefaultClaims,
	}
	if len(r.defaultClaims) == 0 {
		r.defaultClaims = map[string]string{"displayName": "Default User"}
	}

	for _, c := range file.Contracts {
		if _, dup := r.strategies[c.ID]; dup {
			return nil, fmt.Errorf("contract %s is listed more than once", c.ID)
		}
		allowPIN := true
		if c.AllowPIN != nil {
			allowPIN = *c.AllowPIN
		}
		r.strategies[c.ID] = Strategy{
			ID:       c.ID,
			Name:     c.Name,
			Kind:     c.Kind,
			Claims:   c.Claims,
			AllowPIN: allowPIN,
		}
	}
	return r, nil
}

func validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse contract registry: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(registrySchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("failed to validate contract registry: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid contract registry: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Lookup returns the strategy for id. Unknown ids get the default strategy.
func (r *Registry) Lookup(id string) Strategy {
	if s, ok := r.strategies[id]; ok {
		return s
	}
	return Strategy{
		ID:       id,
		Kind:     KindDefault,
		Claims:   maps.Clone(r.defaultClaims),
		AllowPIN: true,
	}
}

// Known reports whether id has an explicit registry entry.
func (r *Registry) Known(id string) bool {
	_, ok := r.strategies[id]
	return ok
}

// Strategies returns the registered strategies ordered by id.
func (r *Registry) Strategies() []Strategy {
	out := slices.Collect(maps.Values(r.strategies))
	slices.SortFunc(out, func(a, b Strategy) int { return strings.Compare(a.ID, b.ID) })
	return out
}
