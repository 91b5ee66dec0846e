// Package migrations contains embedded SQL migrations for the projector store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
