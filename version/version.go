// Package version provides the SDK version and utilities for extracting build
// and dependency information
package version

import (
	"runtime/debug"
	"sort"
)

// ModulePath is the import path of the SDK module.
const ModulePath = "brein.evalgo.org"

// Version is the SDK release reported in the User-Agent header and logs.
const Version = "1.2.0"

// UserAgent returns the User-Agent header value sent with every request.
func UserAgent() string {
	return "brein-go/" + Version
}

// DependencyInfo represents a module dependency and its version
type DependencyInfo struct {
	Path    string `json:"path" yaml:"path"`
	Version string `json:"version" yaml:"version"`
	Replace string `json:"replace,omitempty" yaml:"replace,omitempty"` // If module is replaced
}

// BuildInfo contains build-time information
type BuildInfo struct {
	SDKVersion    string           `json:"sdkVersion" yaml:"sdkVersion"`
	ModuleVersion string           `json:"moduleVersion" yaml:"moduleVersion"`
	GoVersion     string           `json:"goVersion" yaml:"goVersion"`
	MainModule    string           `json:"mainModule" yaml:"mainModule"`
	MainVersion   string           `json:"mainVersion" yaml:"mainVersion"`
	Dependencies  []DependencyInfo `json:"dependencies" yaml:"dependencies"`
}

// GetBuildInfo extracts build information from the current binary
// This uses runtime/debug to get module information embedded at build time
func GetBuildInfo() *BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return &BuildInfo{
			SDKVersion:    Version,
			ModuleVersion: "unknown",
			GoVersion:     "unknown",
			MainModule:    "unknown",
			MainVersion:   "unknown",
			Dependencies:  []DependencyInfo{},
		}
	}

	buildInfo := &BuildInfo{
		SDKVersion:    Version,
		ModuleVersion: GetModuleVersion(),
		GoVersion:     info.GoVersion,
		MainModule:    info.Path,
		MainVersion:   info.Main.Version,
		Dependencies:  make([]DependencyInfo, 0, len(info.Deps)),
	}

	for _, dep := range info.Deps {
		buildInfo.Dependencies = append(buildInfo.Dependencies, toDependencyInfo(dep))
	}

	// Sort dependencies by path for consistent output
	sort.Slice(buildInfo.Dependencies, func(i, j int) bool {
		return buildInfo.Dependencies[i].Path < buildInfo.Dependencies[j].Path
	})

	return buildInfo
}

// GetModuleVersion returns the version of the SDK module as seen by the
// running binary: the main module version when built from this repository,
// the dependency version when imported. Returns "unknown" if it cannot be
// determined and "dev" for local builds.
func GetModuleVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	if info.Path == ModulePath || info.Main.Path == ModulePath {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
		return "dev"
	}

	for _, dep := range info.Deps {
		if dep.Path == ModulePath {
			if dep.Replace != nil {
				return dep.Replace.Version + " (replaced)"
			}
			return dep.Version
		}
	}

	return "unknown"
}

// GetDependency returns version information for a specific dependency
func GetDependency(modulePath string) *DependencyInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}

	for _, dep := range info.Deps {
		if dep.Path == modulePath {
			depInfo := toDependencyInfo(dep)
			return &depInfo
		}
	}

	return nil
}

func toDependencyInfo(dep *debug.Module) DependencyInfo {
	depInfo := DependencyInfo{
		Path:    dep.Path,
		Version: dep.Version,
	}
	if dep.Replace != nil {
		depInfo.Replace = dep.Replace.Path + "@" + dep.Replace.Version
	}
	return depInfo
}
