// Package build carries version information stamped at link time.
package build

// Version is the release identifier printed by the version command.
// Overridden via -ldflags "-X go.trai.ch/remap/internal/build.Version=...".
var Version = "dev"
