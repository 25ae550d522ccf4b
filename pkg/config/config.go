// Package config loads the governance policy for a conformance run: the
// path mapping and scope tables, the documented-exceptions list and the
// extension marker. Defaults are compiled in; a YAML file overlays them and
// a handful of env vars overlay both.
package config

import (
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"

	"github.com/specparity/specparity/pkg/conformance"
)

// PolicyConfig is the serialized form of the governance policy.
type PolicyConfig struct {
	PathPrefix      string            `koanf:"pathPrefix" yaml:"pathPrefix" env:"CONFORMANCE_PATH_PREFIX"`
	AdminPrefix     string            `koanf:"adminPrefix" yaml:"adminPrefix" env:"CONFORMANCE_ADMIN_PREFIX"`
	ExtensionMarker string            `koanf:"extensionMarker" yaml:"extensionMarker" env:"CONFORMANCE_EXTENSION_MARKER"`
	StrictTypes     bool              `koanf:"strictTypes" yaml:"strictTypes" env:"CONFORMANCE_STRICT_TYPES"`
	StrictRequired  bool              `koanf:"strictRequired" yaml:"strictRequired" env:"CONFORMANCE_STRICT_REQUIRED"`
	PathMapping     map[string]string `koanf:"pathMapping" yaml:"pathMapping"`
	OutOfScope      *OutOfScopeConfig `koanf:"outOfScope" yaml:"outOfScope"`
	Exceptions      []Exception       `koanf:"exceptions" yaml:"exceptions"`
}

// OutOfScopeConfig lists reference endpoints the implementation does not
// serve on purpose.
type OutOfScopeConfig struct {
	Paths    []string            `koanf:"paths" yaml:"paths"`
	Prefixes []string            `koanf:"prefixes" yaml:"prefixes"`
	Methods  map[string][]string `koanf:"methods" yaml:"methods"`
}

// Exception is one documented-missing entry. Method case and location case
// are normalized when the policy is built.
type Exception struct {
	Path     string `koanf:"path" yaml:"path"`
	Method   string `koanf:"method" yaml:"method"`
	Location string `koanf:"location" yaml:"location"`
	Field    string `koanf:"field" yaml:"field"`
	Reason   string `koanf:"reason" yaml:"reason"`
}

// MustPolicyConfig loads a policy YAML file over the compiled-in defaults.
// A missing or unreadable file falls back to the defaults with a logged
// error; an empty path skips the file entirely. Env overlay runs last.
func MustPolicyConfig(filePath string) *PolicyConfig {
	res := NewDefaultPolicyConfig()

	if filePath == "" {
		res.applyEnv()
		return res
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
		slog.Error("error loading policy config. using defaults", "error", err)
		res.applyEnv()
		return res
	}

	if err := k.Unmarshal("", res); err != nil {
		slog.Error("error parsing policy config. using defaults", "error", err)
		res = NewDefaultPolicyConfig()
		res.applyEnv()
		return res
	}

	res.EnsurePolicyValues()
	res.applyEnv()
	return res
}

// NewPolicyConfigFromContent builds a config from YAML content. Unset
// sections are filled from the defaults.
func NewPolicyConfigFromContent(content []byte) (*PolicyConfig, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, err
	}

	cfg := &PolicyConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.EnsurePolicyValues()
	return cfg, nil
}

// EnsurePolicyValues fills every unset section from the defaults.
func (c *PolicyConfig) EnsurePolicyValues() {
	def := NewDefaultPolicyConfig()

	if c.PathPrefix == "" {
		c.PathPrefix = def.PathPrefix
	}
	if c.AdminPrefix == "" {
		c.AdminPrefix = def.AdminPrefix
	}
	if c.ExtensionMarker == "" {
		c.ExtensionMarker = def.ExtensionMarker
	}
	if len(c.PathMapping) == 0 {
		c.PathMapping = def.PathMapping
	}
	if c.OutOfScope == nil {
		c.OutOfScope = def.OutOfScope
	} else {
		if len(c.OutOfScope.Paths) == 0 {
			c.OutOfScope.Paths = def.OutOfScope.Paths
		}
		if len(c.OutOfScope.Prefixes) == 0 {
			c.OutOfScope.Prefixes = def.OutOfScope.Prefixes
		}
		if len(c.OutOfScope.Methods) == 0 {
			c.OutOfScope.Methods = def.OutOfScope.Methods
		}
	}
	if len(c.Exceptions) == 0 {
		c.Exceptions = def.Exceptions
	}
}

func (c *PolicyConfig) applyEnv() {
	if err := env.Parse(c); err != nil {
		slog.Error("Failed to parse env", "error", err)
	}
}

// Scope builds the endpoint scope the checker runs with. Methods are
// lower-cased to match document path items.
func (c *PolicyConfig) Scope() *conformance.Scope {
	oos := c.OutOfScope
	if oos == nil {
		oos = &OutOfScopeConfig{}
	}

	methods := make(map[string][]string, len(oos.Methods))
	for path, list := range oos.Methods {
		lowered := make([]string, 0, len(list))
		for _, m := range list {
			lowered = append(lowered, strings.ToLower(m))
		}
		methods[path] = lowered
	}

	return &conformance.Scope{
		PathMapping:        c.PathMapping,
		PathPrefix:         c.PathPrefix,
		AdminPrefix:        c.AdminPrefix,
		OutOfScopePaths:    oos.Paths,
		OutOfScopePrefixes: oos.Prefixes,
		OutOfScopeMethods:  methods,
	}
}

// Policy builds the governance policy. Exception methods are upper-cased and
// locations lower-cased to match the differ's keys.
func (c *PolicyConfig) Policy() *conformance.Policy {
	exceptions := make(map[conformance.ExceptionKey]string, len(c.Exceptions))
	for _, e := range c.Exceptions {
		key := conformance.ExceptionKey{
			Path:     e.Path,
			Method:   strings.ToUpper(e.Method),
			Location: strings.ToLower(e.Location),
			Field:    e.Field,
		}
		exceptions[key] = e.Reason
	}

	return &conformance.Policy{
		Exceptions:      exceptions,
		ExtensionMarker: c.ExtensionMarker,
		StrictTypes:     c.StrictTypes,
		StrictRequired:  c.StrictRequired,
	}
}
