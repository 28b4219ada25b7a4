// Package client is an HTTP client for the Monitor Miner controller API.
//
// It is used by minerctl to read status, sensors and relays, to switch
// relays, and to provision Wi-Fi credentials onto a controller that is
// serving its setup network.
//
//	c := client.NewClient(client.SetupAddress, client.DefaultPort)
//	networks, err := c.Scan(ctx)
//	if err != nil {
//		fmt.Println(client.GetTroubleshootingHint(err))
//	}
//
// Errors are *DeviceError values classified by ErrorType. Read requests
// are retried while IsRetryable reports true.
package client
