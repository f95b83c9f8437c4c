// Package buildinfo carries version metadata injected at build time via
// -ldflags and surfaced on the health endpoint.
package buildinfo

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info returns the build metadata as a flat map for JSON responses.
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}
