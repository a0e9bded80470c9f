// Package mcp exposes the engramd services as MCP tools, resources and
// prompts.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// over the stdio transport and registers the datacore.* tools: engram
// lifecycle, injection and recall, notes, packs, sessions, status and
// modules. Every handler records invocation metrics, and outputs carry
// next-step hints when hints are enabled.
//
// Read-only views are served as datacore:// resources (status, active
// engrams, journal entries, the agent guide), and the datacore-session,
// datacore-learn and datacore-guide prompts bootstrap an agent.
package mcp
