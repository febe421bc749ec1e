// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML or YAML configuration storage
//   - PromptStore: User-editable prompt templates with embedded defaults
//   - WatchPrompts: Hot reload of prompt templates
package file
