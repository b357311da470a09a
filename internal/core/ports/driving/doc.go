// Package driving provides interfaces consumed by user-facing adapters
// (primary/inbound ports): the build and question-answering entry points.
package driving
