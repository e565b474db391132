// Package appfs embeds the files shipped with the binaries: SQL migrations and templates.
package appfs

import "embed"

//go:embed migrations assets
var FS embed.FS
