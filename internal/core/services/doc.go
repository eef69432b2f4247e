// Package services contains the core services of the prompt configuration
// subsystem: ConfigStore (durable configuration storage), RemoteSync
// (remote fetch, validation, and rollout gating), TemplateEngine (template
// compilation and rendering), UpdateScheduler (periodic update loop),
// PromptCoordinator (orchestration and the degrade-gracefully contract),
// and ReplyService (prompt + generation with last-resort fallbacks).
//
// Services receive their collaborators through constructors, either as
// ports from internal/core/ports/driven or as narrow consumer-side
// interfaces declared next to the consumer, so tests can substitute fakes
// for the durable store and the remote source.
package services
