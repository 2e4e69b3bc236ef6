package version

import (
	"runtime"

	goversion "github.com/mcuadros/go-version"
)

var (
	Version   = "1.0.0" // overridden with -ldflags at release time
	Commit    = "none"
	GoVersion = runtime.Version()
)

// Satisfies reports whether the running toolkit is at least min.
// An empty min is always satisfied.
func Satisfies(min string) bool {
	if min == "" {
		return true
	}
	return goversion.Compare(goversion.Normalize(Version), goversion.Normalize(min), ">=")
}
