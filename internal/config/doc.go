// Package config defines the settings shared by the help-alert binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Secrets (the VAPID key pair and the directory DSN) may also come from the
// environment, optionally populated from a .env file.
package config
