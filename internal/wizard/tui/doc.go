// Package tui implements minerctl's interactive controller wizard with
// Bubble Tea.
//
// The wizard has three screens:
//
//   - Discovery: lists controllers found over mDNS, plus the fixed setup
//     network address for controllers that have not joined Wi-Fi yet.
//     An IP address can also be typed in.
//   - Dashboard: shows status, sensors and relays for one controller and
//     toggles relays with the digit keys. It refreshes every few seconds.
//   - Wi-Fi setup: scans networks through the controller, asks for the
//     password and provisions the credentials. The controller restarts
//     onto the new network shortly after answering.
//
// Screens never call each other. They return a screenTransitionMsg and
// AppModel swaps the active model, so each screen can be tested alone.
//
// Every screen is wrapped by RenderApplicationContainer, which adds the
// header and the context-sensitive help footer.
package tui
