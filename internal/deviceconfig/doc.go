// Package deviceconfig defines the persisted device configuration document
// and the rules it must satisfy.
//
// The document is JSON with four sections (wifi, system, sensors, relays).
// Extra top-level sections are accepted by the schema and preserved by the
// store, which always replaces the whole document on write.
//
// Validation happens at two levels: ValidateDocument checks a raw body
// against a JSON schema, and the ValidateWiFi* helpers enforce the 802.11
// limits on credentials submitted during provisioning.
package deviceconfig
