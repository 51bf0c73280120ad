// Package dispatch routes canonical chat requests to configured backend
// adapters. It owns provider selection (a registry keyed by provider type),
// per-request credential resolution, per-model configuration overrides, and
// the performance trace of each proxied stream. Configuration storage and
// credential refresh are external collaborators consumed through the
// ConfigSource and CredentialResolver interfaces.
package dispatch
