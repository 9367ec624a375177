package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadPolicyFile reads a policy YAML file and overlays it on DefaultPolicy.
// The merged policy must validate.
func LoadPolicyFile(path string) (*Policy, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load policy from %q: %w", path, err)
	}

	policy := DefaultPolicy()
	if err := k.UnmarshalWithConf("", &policy, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to parse policy from %q: %w", path, err)
	}

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("policy validation failed for %q: %w", path, err)
	}

	return &policy, nil
}

// LoadPolicy returns DefaultPolicy when path is empty and the file contents
// otherwise.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		p := DefaultPolicy()
		return &p, nil
	}
	return LoadPolicyFile(path)
}
