// Package normalisers provides implementations of the Normaliser interface
// for the document formats the ingestion pipeline accepts. Each normaliser
// knows how to turn one artifact on disk into plain-text documents ready
// for chunking.
package normalisers
