// Package dispatch turns resolved routes into responses.
//
// It defines the request vocabulary shared across the project
// (Request, Response, Handler, Middleware, Match, Resolver) and the
// two execution engines built on it: the middleware chain and the
// dispatcher.
//
// The chain runs middleware strictly in registration order. Each step
// receives a single-use advance callback; invoking it twice is an
// error, and finishing without invoking it halts the chain silently,
// which is how middleware short-circuits with an early response.
// Errors are never caught mid-chain, they propagate to the dispatcher.
//
// The dispatcher is the single recovery point. It resolves the route,
// parses multipart bodies before any handler runs, executes the chain,
// and converts every failure, including panics, into a JSON error
// envelope with the matching status code. 5xx detail is gated behind
// development mode.
package dispatch
