// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origInfo    Info
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origInfo = *info

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*info = origInfo

	os.Exit(exitCode)
}

func resetInfo() {
	*info = Info{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        devValue,
		Commit:      devValue,
		Version:     devValue,
	}
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrMsg  string
	}{
		{"Missing Name", "", "2026-10-01", "abcdef1", "v0.3.0", "build: missing ldflags: name"},
		{"Missing Time", "dentvoice", "", "abcdef1", "v0.3.0", "build: missing ldflags: time"},
		{"Missing Commit And Version", "dentvoice", "2026-10-01", "", "", "build: missing ldflags: commit, version"},
		{"Success Case", "dentvoice", "2026-10-01", "abcdef1", "v0.3.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetInfo()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.wantErrMsg != "" {
				if err == nil || err.Error() != tt.wantErrMsg {
					t.Errorf("Initialize() error = %v, want %v", err, tt.wantErrMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			if info.Version != tt.buildVer || info.Commit != tt.buildCommit {
				t.Errorf("info = %+v, want version %s commit %s", info, tt.buildVer, tt.buildCommit)
			}
		})
	}
}

func TestInitializeKeepsDefaultsForMissingFlags(t *testing.T) {
	resetInfo()
	buildName, buildTime, buildCommit, buildVersion = "", "", "", ""

	_ = Initialize()

	flags := GetBuildFlags()
	if flags.Name != defaultName || flags.Version != devValue {
		t.Errorf("GetBuildFlags() = %+v, want development defaults", flags)
	}
}

func TestInfoString(t *testing.T) {
	i := &Info{Name: "dentvoice", Version: "v0.3.0", Commit: "abcdef1", Time: "2026-10-01"}
	want := "dentvoice v0.3.0 (commit abcdef1, built 2026-10-01)"
	if got := i.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
