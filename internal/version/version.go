// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - Segmented kernel manifests (Cassini, MRO, Mars 2020), manifest builder
// 0.2.0 - MCP server over stdio, remote kernel directory checking, cache TUI
// 0.1.0 - Initial release: kernel cache manager, position/state/trajectory queries
