package build

// Name and Version are injected at build time via ldflags.
var (
	Name    = "fama"
	Version = "v0.0.0+dev"
)
