// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata stamped into the dentvoice binary at
// link time:
//
//	go build -ldflags "-X dentvoice/pkg/build.buildVersion=0.3.0 \
//	    -X dentvoice/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X dentvoice/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds run without the flags; Info then reports "dev"
// values and Initialize says which flags were missing.
package build

import (
	"fmt"
	"strings"
)

const (
	defaultName        = "dentvoice"
	defaultDescription = "Dental voice dictation with a live microphone waveform"
	devValue           = "dev"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	info         = &Info{
		Name:        defaultName,
		Description: defaultDescription,
		Time:        devValue,
		Commit:      devValue,
		Version:     devValue,
	}
)

// Initialize copies the link-time values into Info. Every missing value
// keeps its development default and is named in the returned error, so a
// caller can decide whether an unstamped binary is acceptable.
func Initialize() error {
	var missing []string
	set := func(dst *string, v, name string) {
		if v == "" {
			missing = append(missing, name)
			return
		}
		*dst = v
	}

	set(&info.Name, buildName, "name")
	set(&info.Time, buildTime, "time")
	set(&info.Commit, buildCommit, "commit")
	set(&info.Version, buildVersion, "version")

	if len(missing) > 0 {
		return fmt.Errorf("build: missing ldflags: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return info
}

// String formats the version line printed by --version.
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
