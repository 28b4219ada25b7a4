package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromSettings(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version, Commit = "", ""
	fromSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "vcs.time", Value: "2026-03-14T09:26:53Z"},
	})
	if Commit != "0123456-dirty" {
		t.Errorf("Commit = %q, want 0123456-dirty", Commit)
	}
	if Version != "dev-20260314" {
		t.Errorf("Version = %q, want dev-20260314", Version)
	}
}

func TestFromSettingsKeepsLinkerValues(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version, Commit = "v1.2.3", "abc123"
	fromSettings([]debug.BuildSetting{{Key: "vcs.revision", Value: "fffffff"}})
	if Version != "v1.2.3" || Commit != "abc123" {
		t.Errorf("got %s/%s, want linker values kept", Version, Commit)
	}
}

func TestFullAndUserAgent(t *testing.T) {
	if !strings.Contains(Full(), "(commit: ") {
		t.Errorf("Full() = %q", Full())
	}
	if ua := UserAgent("minerctl"); !strings.HasPrefix(ua, "minerctl/") {
		t.Errorf("UserAgent() = %q", ua)
	}
}
