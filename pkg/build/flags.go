// SPDX-License-Identifier: MIT
//
// Package build carries the metadata linked into the analyzer binary: the
// application name and description shown by the CLI, the build timestamp,
// the Git commit and the semantic version. Values are injected with -ldflags:
//
//	go build -ldflags "-X spectrum/pkg/build.buildName=spectrum \
//	  -X spectrum/pkg/build.buildVersion=0.1.0 ..."
//
// Development builds run without them; Initialize reports what is missing and
// the defaults stay in place.
package build

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingFlags is returned by Initialize when one or more ldflags were not set.
var ErrMissingFlags = errors.New("build flags missing")

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Package-level variables for build information. These are populated by -ldflags
// during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = defaultFlags()
)

func defaultFlags() *ldFlags {
	return &ldFlags{
		Name:        "spectrum",
		Description: "Real-time audio spectrum analyzer",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize validates and copies build information from ldflags variables
// into the buildFlags struct. Flags that were set are copied even when others
// are missing; the error names every missing flag and wraps ErrMissingFlags.
func Initialize() error {
	var missing []string
	set := func(dst *string, value, name string) {
		if value == "" {
			missing = append(missing, name)
			return
		}
		*dst = value
	}

	set(&buildFlags.Name, buildName, "BuildName")
	set(&buildFlags.Time, buildTime, "BuildTime")
	set(&buildFlags.Commit, buildCommit, "BuildCommit")
	set(&buildFlags.Version, buildVersion, "BuildVersion")

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFlags, strings.Join(missing, ", "))
	}
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the version line printed by `spectrum --version`.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", f.Version, f.Commit, f.Time)
}
