// Package buildinfo holds version metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/matzehuels/isometric/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/isometric/pkg/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import "fmt"

// Link-time values. Unstamped builds report "dev".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Template returns the cobra version template, e.g.
// "isometric version v1.0.0 (abc1234, built 2026-01-02)".
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s (%s, built %s)\n", Version, Commit, Date)
}
