// Package web holds the embedded viewer page.
package web

import _ "embed"

//go:embed index.html
var IndexHTML []byte
