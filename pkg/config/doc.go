// Package config holds the settings for one console link: which console
// model to talk to, where it lives, the MIDI base channel and the link
// timings.
//
// Settings are layered, highest precedence first:
//
//  1. CLI flags (applied by cmd/console-link)
//  2. Environment variables (LoadFromEnv)
//  3. A YAML or TOML file (Load)
//  4. Defaults (Default)
//
// Durations in files and environment variables are Go duration strings
// such as "100ms" or "15s".
package config
