// Package router dispatches requests to the best ready service of a named
// route and degrades to a static payload when none can answer.
//
// A route names a primary service, ordered fallbacks and services it
// requires. RouteRequest picks the primary when it is ready, otherwise the
// first ready fallback. A handler failure moves on to the next ready
// fallback; fallbacks are tried strictly one after another. When every
// candidate is unavailable or has failed, the caller still gets a Response:
// its payload is the route's static fallback and Routing.Service is empty.
//
// WaitForRoute lets callers trade latency for a full answer. It initializes
// the primary through the registry and wakes on registry state changes
// instead of sleeping between polls.
package router
