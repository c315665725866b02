// Package api holds the types shared between switchyard's components: service
// lifecycle states, status snapshots for services and routes, and the typed
// errors callers branch on with the IsX helpers.
//
// Keeping these here lets the router, the HTTP surface and the CLI client
// agree on one vocabulary without importing each other.
package api
