// Package config provides configuration loading and path management.
//
// Configuration is merged from, in increasing priority:
//
//   - the global file in the XDG config directory (config.json, config.jsonc, config.yaml)
//   - project files in the working directory (tbgclient.json, tbgclient.jsonc, tbgclient.yaml)
//   - the file named by TBG_CONFIG
//   - inline JSON in TBG_CONFIG_CONTENT
//   - TBG_* environment variables, after loading a .env file from the working directory
//
// String values may reference {env:VAR} and {file:path} placeholders.
package config
