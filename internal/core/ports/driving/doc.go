// Package driving declares what the CLI, TUI and MCP adapters may call:
// asking questions, searching the catalog, managing sessions and settings.
// internal/core/services implements every interface here.
package driving
