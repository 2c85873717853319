/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo resolves the version of the library for labeling exported metrics.
package libinfo

import (
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const moduleName = "github.com/acronis/go-cachekit"

// PrometheusLibVersionLabel is the name of the constant label with the library version.
const PrometheusLibVersionLabel = "go_cachekit_version"

const unknownVersion = "v0.0.0"

var modulePathRe = regexp.MustCompile(`^` + regexp.QuoteMeta(moduleName) + `(/v[0-9]+)?$`)

// AddPrometheusLibVersionLabel returns a copy of labels extended with the library version label.
func AddPrometheusLibVersionLabel(labels prometheus.Labels) prometheus.Labels {
	res := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		res[k] = v
	}
	res[PrometheusLibVersionLabel] = GetLibVersion()
	return res
}

var (
	libVersion     string
	libVersionOnce sync.Once
)

// GetLibVersion returns the version of the library the running binary is built with.
func GetLibVersion() string {
	libVersionOnce.Do(func() {
		buildInfo, _ := debug.ReadBuildInfo()
		libVersion = resolveVersion(buildInfo)
	})
	return libVersion
}

// resolveVersion looks for the library among the binary's dependencies and, for binaries built
// from this module itself (cachectl), in its main module. Unversioned builds get unknownVersion.
func resolveVersion(buildInfo *debug.BuildInfo) string {
	if buildInfo == nil {
		return unknownVersion
	}
	if modulePathRe.MatchString(buildInfo.Main.Path) && isReleaseVersion(buildInfo.Main.Version) {
		return buildInfo.Main.Version
	}
	for _, dep := range buildInfo.Deps {
		if modulePathRe.MatchString(dep.Path) && isReleaseVersion(dep.Version) {
			return dep.Version
		}
	}
	return unknownVersion
}

func isReleaseVersion(v string) bool {
	return v != "" && v != "(devel)"
}
