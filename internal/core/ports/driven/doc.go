// Package driven defines the outbound ports of the prompt configuration
// subsystem: interfaces the core services depend on and adapters implement
// (durable blob storage, the remote configuration source, network
// reachability, the AI generation backend, and the user profile provider).
package driven
