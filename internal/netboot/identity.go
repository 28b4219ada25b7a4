package netboot

import (
	"encoding/json"
	"net/netip"
)

// Mode is how the device ended up on the network.
type Mode int

const (
	// ModeJoined means the station joined the configured network.
	ModeJoined Mode = iota
	// ModeProvisioning means the device serves its own setup network.
	ModeProvisioning
)

func (m Mode) String() string {
	switch m {
	case ModeJoined:
		return "joined"
	case ModeProvisioning:
		return "provisioning"
	default:
		return "unknown"
	}
}

// Identity is the result of bootstrap. It is decided once per boot and
// never changes while the process runs.
type Identity struct {
	Mode    Mode
	IP      netip.Addr
	Gateway netip.Addr
}

// Joined returns the identity for a successful station join.
func Joined(ip, gateway netip.Addr) Identity {
	return Identity{Mode: ModeJoined, IP: ip, Gateway: gateway}
}

// Provisioning returns the identity for the setup access point.
func Provisioning() Identity {
	return Identity{Mode: ModeProvisioning, IP: SetupIP, Gateway: SetupIP}
}

// IsProvisioning reports whether the device is serving its setup network.
func (i Identity) IsProvisioning() bool {
	return i.Mode == ModeProvisioning
}

func (i Identity) String() string {
	return i.Mode.String() + "@" + i.IP.String()
}

// MarshalJSON renders the identity for status endpoints.
func (i Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mode    string `json:"mode"`
		IP      string `json:"ip"`
		Gateway string `json:"gateway"`
	}{i.Mode.String(), i.IP.String(), i.Gateway.String()})
}
