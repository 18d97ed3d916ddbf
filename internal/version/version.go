// Package version carries the build identity stamped in by the linker:
//
//	go build -ldflags "-X github.com/kailas-cloud/vecrag/internal/version.Version=v0.3.0"
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent is the identity vecrag presents to upstream sites and providers.
func UserAgent() string {
	return "vecrag/" + Version
}

// Short is "<version>+<commit>" with the commit cut to 7 characters.
func Short() string {
	c := Commit
	if len(c) > 7 {
		c = c[:7]
	}
	return Version + "+" + c
}
