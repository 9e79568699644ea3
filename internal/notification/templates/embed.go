package templates

import "embed"

//go:embed files/*.tmpl
var EmbeddedFS embed.FS
