// Package buildinfo carries the release identity stamped in with -ldflags:
//
//	go build -ldflags "-X github.com/YoshitsuguKoike/deetdd/internal/buildinfo.Version=v0.3.0 \
//	  -X github.com/YoshitsuguKoike/deetdd/internal/buildinfo.Commit=$(git rev-parse --short HEAD)" ./cmd/deetdd
package buildinfo

var (
	Version = "dev"
	Commit  = ""
)

// GetVersion returns Version, or "dev" for unstamped builds
func GetVersion() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

// String returns the version with the commit appended when known, e.g. "v0.3.0+1a2b3c4"
func String() string {
	if Commit == "" {
		return GetVersion()
	}
	return GetVersion() + "+" + Commit
}
