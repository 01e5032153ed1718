// Package provider implements model.Provider for OpenAI (Responses API),
// Anthropic and Ollama.
//
// Every provider turns its backend's stream into the closed model.StreamEvent
// set and ends each stream with exactly one Completed or Failed event.
// OpenAI chains exchanges server-side through previous_response_id; the
// other backends keep completed exchanges in a local chain store and hand
// out opaque tokens for them.
package provider
