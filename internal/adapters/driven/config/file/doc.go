// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable prompt templates, hot-reloaded by Watch
//   - LoadDotEnv: provider API keys from .env files
package file
