// Package configs embeds the built-in source configurations.
package configs

import "embed"

// FS holds the default configuration documents. It is the last layer
// consulted by the file-system registry.
//
//go:embed *.yaml *.toml
var FS embed.FS
