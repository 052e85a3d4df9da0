package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

// withBuild sets the ldflags variables and build info for one test.
func withBuild(t *testing.T, version, commit, date string, bi *debug.BuildInfo) {
	t.Helper()
	origVersion, origCommit, origDate, origRead := Version, Commit, Date, readBuildInfo
	t.Cleanup(func() {
		Version, Commit, Date, readBuildInfo = origVersion, origCommit, origDate, origRead
	})

	Version, Commit, Date = version, commit, date
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return bi, bi != nil
	}
}

func TestGetInfo(t *testing.T) {
	withBuild(t, "1.0.0", "abc123def456", "2024-01-01T12:00:00Z", nil)

	info := GetInfo()

	if info.Version != "1.0.0" {
		t.Errorf("GetInfo().Version = %v, want 1.0.0", info.Version)
	}
	if info.Commit != "abc123def456" {
		t.Errorf("GetInfo().Commit = %v, want abc123def456", info.Commit)
	}
	if info.Date != "2024-01-01T12:00:00Z" {
		t.Errorf("GetInfo().Date = %v, want 2024-01-01T12:00:00Z", info.Date)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GetInfo().GoVersion = %v, want %v", info.GoVersion, runtime.Version())
	}
	if want := runtime.GOOS + "/" + runtime.GOARCH; info.Platform != want {
		t.Errorf("GetInfo().Platform = %v, want %v", info.Platform, want)
	}
}

func TestGetInfoFallsBackToBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2025-03-04T05:06:07Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	withBuild(t, "dev", "unknown", "unknown", bi)

	info := GetInfo()
	if info.Version != "v0.4.1" {
		t.Errorf("Version = %q, want v0.4.1", info.Version)
	}
	if info.Commit != "0123456789abcdef" {
		t.Errorf("Commit = %q", info.Commit)
	}
	if info.Date != "2025-03-04T05:06:07Z" {
		t.Errorf("Date = %q", info.Date)
	}
	if !info.Modified {
		t.Error("Modified = false, want true")
	}
	if !strings.Contains(info.String(), "(01234567-dirty)") {
		t.Errorf("String() = %q, want dirty short commit", info.String())
	}
}

func TestGetInfoLdflagsWin(t *testing.T) {
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "v9.9.9"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	}
	withBuild(t, "1.2.3", "abcd", "today", bi)

	info := GetInfo()
	if info.Version != "1.2.3" || info.Commit != "abcd" || info.Date != "today" {
		t.Errorf("ldflags values overridden: %+v", info)
	}
}

func TestGetInfoIgnoresDevelVersion(t *testing.T) {
	withBuild(t, "dev", "unknown", "unknown", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	if got := GetInfo().Version; got != "dev" {
		t.Errorf("Version = %q, want dev", got)
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want []string
	}{
		{
			name: "long commit is shortened",
			info: Info{Version: "1.0.0", Commit: "abc123def456789", Date: "2024-01-01", GoVersion: "go1.24.6", Platform: "linux/amd64"},
			want: []string{"planguard", "1.0.0", "(abc123de)", "2024-01-01", "go1.24.6", "linux/amd64"},
		},
		{
			name: "short commit kept",
			info: Info{Version: "dev", Commit: "abc", Date: "unknown", GoVersion: "go1.24.6", Platform: "darwin/arm64"},
			want: []string{"planguard dev (abc)", "darwin/arm64"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.info.String()
			for _, s := range tt.want {
				if !strings.Contains(got, s) {
					t.Errorf("String() = %q, missing %q", got, s)
				}
			}
		})
	}
}

func TestInfoShort(t *testing.T) {
	if got := (Info{Version: "2.0.0"}).Short(); got != "2.0.0" {
		t.Errorf("Short() = %q, want 2.0.0", got)
	}
}
