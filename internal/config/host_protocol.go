package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wisplang/wisp/lang/host"
	"github.com/wisplang/wisp/lang/value"
)

// HostProtocol describes, as a small YAML document, which global symbols a
// compile run's host environment exposes and which of those are mutable
// (read through get and written by varset! through set!) versus bound to
// Nil. It is
// deliberately minimal: a real embedding application builds its
// host.Environment programmatically; this file format only exists so the
// wispc CLI and golden tests can drive a non-trivial environment from a
// plain text fixture instead of Go source.
//
//	mutable:
//	  - counter
//	constants:
//	  - pi
//	nil:
//	  - undefined-feature
type HostProtocol struct {
	Mutable   []string `yaml:"mutable"`
	Constants []string `yaml:"constants"`
	Nil       []string `yaml:"nil"`
}

// LoadHostProtocol reads and parses a host-protocol descriptor file.
func LoadHostProtocol(path string) (*HostProtocol, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read host protocol: %w", err)
	}
	var p HostProtocol
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("config: parse host protocol: %w", err)
	}
	return &p, nil
}

// Apply seeds env according to the protocol: mutable and constant names are
// bound to Nil placeholders (a real embedder would bind real values before
// or after loading the protocol; this only establishes the mutability
// metadata), and nil names are recorded in the Nils table.
func (p *HostProtocol) Apply(env *host.Environment) error {
	for _, name := range p.Mutable {
		if err := env.DefineMutable(name, value.NilValue); err != nil {
			return fmt.Errorf("config: apply host protocol: mutable %q: %w", name, err)
		}
	}
	for _, name := range p.Constants {
		if err := env.Define(name, value.NilValue); err != nil {
			return fmt.Errorf("config: apply host protocol: constant %q: %w", name, err)
		}
	}
	for _, name := range p.Nil {
		if err := env.DefineNil(name); err != nil {
			return fmt.Errorf("config: apply host protocol: nil %q: %w", name, err)
		}
	}
	return nil
}
