// Package listener binds the dispatcher to real HTTP transports.
//
// A Server owns one TCP listener and serves it through a pluggable
// engine. Two engines exist: the standard library net/http server and
// a fasthttp server for deployments that want its allocation profile.
// Both translate inbound requests into the dispatcher's
// transport-neutral form, so routes, middleware, and handlers never
// see which engine carried the request.
package listener
