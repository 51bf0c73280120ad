// Package observability defines the logging and tracing capability objects
// that are passed explicitly into adapter calls via context. Adapters accept
// a nil logger/span and degrade to silence, so no component ever consults
// global state to decide whether to log.
package observability
