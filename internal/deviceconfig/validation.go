package deviceconfig

import (
	"fmt"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema constrains POST /api/config bodies. Unknown top-level
// sections are allowed and stored as-is.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["wifi"],
  "properties": {
    "wifi": {
      "type": "object",
      "required": ["ssid", "configured"],
      "properties": {
        "ssid": {"type": "string", "maxLength": 32},
        "password": {
          "type": "string",
          "maxLength": 63,
          "anyOf": [{"maxLength": 0}, {"minLength": 8}]
        },
        "configured": {"type": "boolean"},
        "use_dhcp": {"type": "boolean"}
      }
    },
    "system": {
      "type": "object",
      "properties": {
        "name": {"type": "string", "minLength": 1, "maxLength": 64},
        "device_id": {"type": "string"},
        "first_boot": {"type": "boolean"}
      }
    },
    "sensors": {
      "type": "object",
      "properties": {
        "read_interval": {"type": "integer", "minimum": 1, "maximum": 3600}
      }
    },
    "relays": {
      "type": "object",
      "properties": {
        "pins": {"type": "array", "items": {"type": "integer", "minimum": 0}, "maxItems": 4}
      }
    }
  }
}`

var schema = mustSchema(documentSchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("deviceconfig: invalid document schema: %v", err))
	}
	return s
}

// ValidateDocument checks a raw JSON document against the config schema.
func ValidateDocument(data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &ValidationError{Message: "document is not valid JSON", Details: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}
	return &ValidationError{Message: "document does not match schema", Details: details}
}

// ValidateWiFiSSID validates a WiFi SSID.
// SSIDs must be non-empty and <= 32 bytes (802.11 limit).
func ValidateWiFiSSID(ssid string) error {
	if ssid == "" {
		return NewValidationError("wifi.ssid", "SSID is required")
	}
	if len(ssid) > 32 {
		return NewValidationError("wifi.ssid", fmt.Sprintf("SSID too long (max 32 bytes): %d bytes", len(ssid)))
	}
	if !utf8.ValidString(ssid) {
		return NewValidationError("wifi.ssid", "SSID is not valid UTF-8")
	}
	return nil
}

// ValidateWiFiPassword validates a WiFi password.
// Empty means an open network; otherwise WPA2 requires 8-63 characters.
func ValidateWiFiPassword(password string) error {
	if password == "" {
		return nil
	}
	if len(password) < 8 {
		return NewValidationError("wifi.password", fmt.Sprintf("password too short (min 8 chars): %d chars", len(password)))
	}
	if len(password) > 63 {
		return NewValidationError("wifi.password", fmt.Sprintf("password too long (max 63 chars): %d chars", len(password)))
	}
	return nil
}

// ValidateWiFiConfig validates credentials submitted for provisioning.
// Returns a slice of validation errors (empty if valid).
func ValidateWiFiConfig(config *WiFiConfig) []error {
	var errs []error
	if err := ValidateWiFiSSID(config.SSID); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateWiFiPassword(config.Password); err != nil {
		errs = append(errs, err)
	}
	return errs
}
