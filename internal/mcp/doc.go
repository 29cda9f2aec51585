// Package mcp exposes the workflow service over the Model Context Protocol.
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and registers tools for running and resuming workflow turns, inspecting
// condensed session context, and managing checkpoints. It is how editors and
// coding assistants embed agentd without going through HTTP.
package mcp
