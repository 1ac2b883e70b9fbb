package common

// PackageName identifies the service in logs and metrics.
const PackageName = "credential-registry"

// Version is set at build time via -ldflags.
var Version = "dev"
