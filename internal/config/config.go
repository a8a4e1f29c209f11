// Package config resolves subtree synchronization settings. A configuration is
// identified by a symbolic prefix (for example DOCS) and carries four values:
// the subtree path inside the remote repository, the local working directory,
// the remote repository identifier, and the branch. Values come from a YAML
// registry file, overridden field-by-field by process environment variables
// following the {PREFIX}_SUBTREE|_DIR|_REPO|_BRANCH naming convention.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Subtree is one resolved subtree configuration.
type Subtree struct {
	Path   string `yaml:"subtree"` // path prefix inside the remote repository
	Dir    string `yaml:"dir"`    // local working directory
	Repo   string `yaml:"repo"`   // remote identifier, e.g. org/docs
	Branch string `yaml:"branch"` // branch to synchronize and publish
}

// PullURL returns the unauthenticated read URL for the configured repository.
// A repo given as a full URL or filesystem path is used as-is.
func (s Subtree) PullURL() string {
	if isExplicitRemote(s.Repo) {
		return s.Repo
	}
	return "git://github.com/" + s.Repo
}

// PushURL returns the authenticated write URL for the configured repository.
// Credentials are supplied separately as basic auth, not embedded in the URL.
func (s Subtree) PushURL() string {
	if isExplicitRemote(s.Repo) {
		return s.Repo
	}
	return "https://github.com/" + s.Repo
}

// isExplicitRemote reports whether repo is already a URL or a local path
// rather than an org/name identifier.
func isExplicitRemote(repo string) bool {
	return strings.Contains(repo, "://") ||
		strings.HasPrefix(repo, "/") ||
		strings.HasPrefix(repo, ".")
}

// Validate checks that all four values are simultaneously non-empty, reporting
// the conventional variable name of the first missing one.
func (s Subtree) Validate(prefix string) error {
	return s.validate(prefix, true)
}

func (s Subtree) validate(prefix string, requireBranch bool) error {
	fields := []struct {
		suffix, value string
	}{
		{"_SUBTREE", s.Path},
		{"_DIR", s.Dir},
		{"_REPO", s.Repo},
	}
	if requireBranch {
		fields = append(fields, struct{ suffix, value string }{"_BRANCH", s.Branch})
	}
	for _, f := range fields {
		if f.value == "" {
			return &MissingVarError{Prefix: prefix, Variable: prefix + f.suffix}
		}
	}
	return nil
}

// MissingVarError reports an unset or empty required configuration value.
type MissingVarError struct {
	Prefix   string
	Variable string
}

func (e *MissingVarError) Error() string {
	return fmt.Sprintf("required variable %s is not set or empty (prefix %s)", e.Variable, e.Prefix)
}

// PublishSettings tunes the publisher retry loop.
type PublishSettings struct {
	Attempts     int    `yaml:"attempts"`      // total push attempts, default 4
	Backoff      string `yaml:"backoff"`       // fixed|linear|exponential
	InitialDelay string `yaml:"initial_delay"` // go duration string, default 1s
	MaxDelay     string `yaml:"max_delay"`     // go duration string, default 30s
}

// DefaultAttempts is the publisher's default total push attempt count.
const DefaultAttempts = 4

// Config is the parsed registry file.
type Config struct {
	Subtrees map[string]Subtree `yaml:"subtrees"`
	Publish  PublishSettings    `yaml:"publish"`
}

// DefaultConfigFile is the registry file looked up when none is given.
const DefaultConfigFile = "subsync.yaml"

// Load reads the registry file. Environment variables inside values are
// expanded (${VAR} or $VAR). A missing file at the default path yields an
// empty registry; an explicitly requested file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	// Pick up .env/.env.local before expansion so file values can reference them.
	loadEnvFile()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Config{Subtrees: map[string]Subtree{}}, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if cfg.Subtrees == nil {
		cfg.Subtrees = map[string]Subtree{}
	}
	return cfg, nil
}

// Resolve produces the effective Subtree for a prefix: the registry entry, if
// any, overridden field-by-field by {PREFIX}_* environment variables, then
// validated. Resolution performs no git operations.
func (c *Config) Resolve(prefix string) (Subtree, error) {
	return c.resolveFrom(prefix, os.Getenv, true)
}

// ResolveForMirror resolves without requiring a branch; a whole-history or
// mirror push operates without a single target branch.
func (c *Config) ResolveForMirror(prefix string) (Subtree, error) {
	return c.resolveFrom(prefix, os.Getenv, false)
}

func (c *Config) resolveFrom(prefix string, getenv func(string) string, requireBranch bool) (Subtree, error) {
	s := c.Subtrees[prefix]
	if v := getenv(prefix + "_SUBTREE"); v != "" {
		s.Path = v
	}
	if v := getenv(prefix + "_DIR"); v != "" {
		s.Dir = v
	}
	if v := getenv(prefix + "_REPO"); v != "" {
		s.Repo = v
	}
	if v := getenv(prefix + "_BRANCH"); v != "" {
		s.Branch = v
	}
	if err := s.validate(prefix, requireBranch); err != nil {
		return Subtree{}, err
	}
	return s, nil
}

// Prefixes returns the registry's configured prefixes in sorted order.
func (c *Config) Prefixes() []string {
	out := make([]string, 0, len(c.Subtrees))
	for p := range c.Subtrees {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// RetrySettings converts the publish section into concrete retry inputs,
// falling back to defaults for missing or malformed values.
func (c *Config) RetrySettings() (mode RetryBackoffMode, initial, maxDelay time.Duration, attempts int) {
	attempts = c.Publish.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	mode = NormalizeRetryBackoff(c.Publish.Backoff)
	initial, _ = time.ParseDuration(c.Publish.InitialDelay)
	maxDelay, _ = time.ParseDuration(c.Publish.MaxDelay)
	return mode, initial, maxDelay, attempts
}
