// Package compileinfo reports the VCS state a binary was built from, so that
// stored runs and log output can be traced back to the code that made them.
package compileinfo

import (
	"fmt"
	"runtime/debug"
)

type CompileInfo struct {
	Package    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	if c.Commit == "" {
		return fmt.Sprintf("%s (%s), built outside version control", c.Package, c.GoVersion)
	}

	dirty := ""
	if c.Modified {
		dirty = ", with uncommitted changes"
	}

	return fmt.Sprintf("%s (%s) at commit %s from %s%s", c.Package, c.GoVersion, c.Short(), c.CommitTime, dirty)
}

// Short is the abbreviated commit hash, suffixed with "+" when the tree was
// modified.
func (c CompileInfo) Short() string {
	out := c.Commit
	if len(out) > 12 {
		out = out[:12]
	}
	if c.Modified {
		out += "+"
	}

	return out
}

// Get reads the build info embedded by the Go toolchain. Fields stay empty when
// it is unavailable, as under go test.
func Get() CompileInfo {
	out := CompileInfo{}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Package = z.Path
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}
