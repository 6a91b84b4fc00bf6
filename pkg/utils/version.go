// Package utils provides small shared helpers for the shelf system.
package utils

// Version is the shelf build version. Overridden at build time via
// -ldflags "-X github.com/foliohq/shelf/pkg/utils.Version=...".
var Version = "dev"
