// Package ci detects the execution context of a build: whether it runs under a
// continuous-integration environment, whether it was triggered by a pull
// request, and which committer identity and publish credentials are available.
package ci

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Environment is a snapshot of the build-context variables, taken once so that
// later mutations of the process environment do not change behavior mid-run.
type Environment struct {
	CI          bool   // CI variable is truthy
	Silent      bool   // CI_SILENT set, forces local-style behavior under CI
	PullRequest bool   // GITHUB_EVENT_NAME == pull_request
	Target      string // CI_TARGET, defaults to the executable base name
	GitName     string // GIT_NAME committer identity
	GitEmail    string // GIT_EMAIL committer identity
	Token       string // GH_TOKEN publish credential
	BuildDir    string // BUILD_DIR workspace root
	OSName      string // TRAVIS_OS_NAME or the runtime platform
	MakeCmd     string // MAKE_CMD, defaults to make
}

// Detect builds an Environment from the process environment.
func Detect() Environment {
	return DetectFrom(os.Getenv)
}

// DetectFrom builds an Environment using the given variable lookup. Tests pass
// a map-backed lookup instead of mutating the process environment.
func DetectFrom(getenv func(string) string) Environment {
	env := Environment{
		CI:          truthy(getenv("CI")),
		Silent:      getenv("CI_SILENT") != "",
		PullRequest: getenv("GITHUB_EVENT_NAME") == "pull_request",
		Target:      getenv("CI_TARGET"),
		GitName:     getenv("GIT_NAME"),
		GitEmail:    getenv("GIT_EMAIL"),
		Token:       getenv("GH_TOKEN"),
		BuildDir:    getenv("BUILD_DIR"),
		OSName:      getenv("TRAVIS_OS_NAME"),
		MakeCmd:     getenv("MAKE_CMD"),
	}
	if env.Target == "" {
		env.Target = filepath.Base(os.Args[0])
	}
	if env.OSName == "" {
		env.OSName = platformName()
	}
	if env.MakeCmd == "" {
		env.MakeCmd = "make"
	}
	return env
}

// IsCI reports whether the build should use automated (non-interactive)
// behavior. CI_SILENT suppresses CI-mode even inside a CI environment.
func (e Environment) IsCI() bool {
	return e.CI && !e.Silent
}

// HasIdentity reports whether a committer identity is fully configured.
func (e Environment) HasIdentity() bool {
	return e.GitName != "" && e.GitEmail != ""
}

// HasToken reports whether a publish credential is configured.
func (e Environment) HasToken() bool {
	return e.Token != ""
}

// CommitSubject derives the generated commit subject from the CI target label,
// with hyphens replaced by spaces.
func (e Environment) CommitSubject() string {
	return strings.ReplaceAll(e.Target, "-", " ")
}

// platformName maps the runtime platform to the label Travis-style scripts use.
func platformName() string {
	switch runtime.GOOS {
	case "darwin":
		return "osx"
	default:
		return runtime.GOOS
	}
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
