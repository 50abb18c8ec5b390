package version

// Version is the current wiki-weaver version, overridden at build time with
// -ldflags "-X github.com/alvmarrod/wiki-weaver/internal/version.Version=..."
var Version = "0.3.0"
