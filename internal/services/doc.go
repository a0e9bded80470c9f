// Package services wires the engramd components over one storage root.
//
// Build resolves the stores of a Layout and returns a Registry. The MCP
// server, the HTTP API and the CLI all take a Registry and use its accessor
// methods, so every surface operates on the same files with the same
// configuration. Session and status operations span several components and
// are implemented here as functions over a Registry.
package services
