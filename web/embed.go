package web

import "embed"

// TemplatesFS holds the layout, partials and page templates.
//
//go:embed templates
var TemplatesFS embed.FS

// StaticFS holds stylesheets and scripts served under /static/.
//
//go:embed static
var StaticFS embed.FS
