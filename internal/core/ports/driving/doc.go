// Package driving defines the inbound ports of the prompt configuration
// subsystem: the operation surface exposed to callers such as the CLI and
// the reply generation flow.
package driving
