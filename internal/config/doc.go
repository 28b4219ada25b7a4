// Package config loads and saves the controller's daemon settings.
//
// Settings are stored as YAML (monitorminer.yaml) and describe the engine
// limits, storage locations, hardware backend and optional uplinks. A missing
// file yields Default(); a partial file overrides only the keys it names.
// Saves are atomic: the file is written to a temporary path and renamed.
//
// The Wi-Fi credentials and device identity are not part of this file. They
// live in the persistent config store (see package store).
package config
