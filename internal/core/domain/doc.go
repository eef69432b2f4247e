// Package domain contains the core types of the prompt configuration
// subsystem: configuration documents, journal entries, render variables,
// remote snapshot keys, and the domain errors shared by services and
// adapters. The package has no dependencies outside the standard library.
package domain
