package version

// Name is the service name reported to tracing backends.
const Name = "gamelog"

// Version is overridden at build time with -ldflags "-X gamelog/internal/version.Version=...".
var Version = "dev"
