package config

// Build metadata, injected via -ldflags at release build time.
var (
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)
