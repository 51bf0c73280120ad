// Package utils contains the shared HTTP plumbing used by every provider
// adapter: JSON POST/GET helpers, the retrying transport with exponential
// backoff, SSE stream framing, and the idle-timeout body wrapper.
package utils
