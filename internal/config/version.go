package config

// Version is the folioctl binary version.
// Set at build time via: -ldflags "-X github.com/folio-labs/folioctl/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
