// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - CandidateSource: Returns the top-k fragments for a query embedding
//   - PassageStore: Passage persistence (also a CandidateSource)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Embeds text queries. Without it, only vector queries work.
//   - LLMService: Answer generation. Without it, the pipeline stops after selection.
//   - AIConfigValidator: Connectivity checks for provider settings.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
