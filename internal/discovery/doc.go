// Package discovery advertises controllers over mDNS and finds them again
// from the host.
//
// A joined controller registers an "_http._tcp" service whose instance name
// is "monitorminer-" followed by the first eight hex digits of its device
// id, with TXT records "path=/" and "ver=<firmware version>". The scanner
// browses "_http._tcp" and keeps only instances matching that pattern.
//
// # Usage Example
//
//	adv, err := discovery.Advertise(cfg.System.DeviceID, 8080, version.Version)
//	if err != nil {
//	    return err
//	}
//	defer adv.Shutdown()
//
//	devices, err := discovery.NewScanner().ScanForDevices(ctx)
//
// Discovery only works on the joined network; in provisioning mode the
// controller is always at 192.168.4.1.
package discovery
