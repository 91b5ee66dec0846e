// Package domain holds the projection documents kept by the projector and the
// pure functions that inspect and rebuild them.
//
// Every projection (application, its initiate draft, hearings, prosecution
// cases) embeds a partial copy of the same facts. Nothing here talks to a
// store: resolve.go answers "which nested records does this change touch" and
// rebuild.go returns new values with a single path replaced, leaving the
// original untouched so sibling projections never share mutable state.
package domain
