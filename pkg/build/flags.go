// SPDX-License-Identifier: MIT
//
// Package build exposes build metadata embedded at link time:
//
//	go build -ldflags "-X beatsync/pkg/build.buildName=beatsync \
//	  -X beatsync/pkg/build.buildVersion=0.3.0 \
//	  -X beatsync/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X beatsync/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds run without the flags and report defaults.
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Set by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

const description = "Keeps a looping video locked to the beats of the playing track"

var buildInfo = defaultInfo()

func defaultInfo() *Info {
	return &Info{
		Name:        "beatsync",
		Description: description,
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
	}
}

// Initialize copies the link-time flags into the build info. Every missing
// flag is reported in the returned error; the defaults stay in place for
// those fields, so callers may treat the error as a warning.
func Initialize() error {
	var errs []error
	set := func(dst *string, val, flag string) {
		if val == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = val
	}
	set(&buildInfo.Name, buildName, "BuildName")
	set(&buildInfo.Time, buildTime, "BuildTime")
	set(&buildInfo.Commit, buildCommit, "BuildCommit")
	set(&buildInfo.Version, buildVersion, "BuildVersion")
	return errors.Join(errs...)
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *Info {
	return buildInfo
}
