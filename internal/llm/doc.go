// Package llm provides text-generation clients for the agent role
// collaborators.
//
// A Generator turns a prompt into a completion. Provider-backed
// implementations exist for Anthropic and OpenAI, both with client-side rate
// limiting and bounded retries with exponential backoff for transient
// failures (429s, 5xx, transport errors). A static generator serves tests
// and offline development.
package llm
