package main

import (
	"runtime/debug"
	"testing"
)

func TestResolveVersion(t *testing.T) {
	stamped := func(mainVersion string, settings ...debug.BuildSetting) *debug.BuildInfo {
		info := &debug.BuildInfo{Settings: settings}
		info.Main.Version = mainVersion
		return info
	}
	rev := debug.BuildSetting{Key: "vcs.revision", Value: "0123456789abcdef0123"}
	dirty := debug.BuildSetting{Key: "vcs.modified", Value: "true"}

	tests := []struct {
		name     string
		injected string
		info     *debug.BuildInfo
		want     string
	}{
		{"injected wins", "v1.4.0", stamped("v0.9.0", rev), "v1.4.0"},
		{"no build info", "dev", nil, "dev"},
		{"go install", "dev", stamped("v0.3.1"), "v0.3.1"},
		{"vcs clean", "dev", stamped("(devel)", rev), "devel+0123456789ab"},
		{"vcs dirty", "dev", stamped("(devel)", rev, dirty), "devel+0123456789ab+dirty"},
		{"nothing known", "dev", stamped("(devel)"), "dev"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveVersion(tt.injected, tt.info); got != tt.want {
				t.Errorf("resolveVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}
