// Package services contains the core pipeline logic: ingestion of
// source artifacts into the chunk index, and grounded question
// answering over it. Services depend only on ports, never on concrete
// adapters.
package services
