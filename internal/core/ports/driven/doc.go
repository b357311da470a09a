// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): normalisers, the derived-text cache, the
// vector index and the external model capabilities.
package driven
