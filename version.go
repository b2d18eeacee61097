// Package termserv exposes a terminal over the Model Context Protocol:
// an MCP server whose tools run shell commands and fetch URLs on behalf
// of a connected client.
package termserv

// Version is the termserv release version, reported by the CLI and in
// the MCP server implementation info.
const Version = "0.4.0"
