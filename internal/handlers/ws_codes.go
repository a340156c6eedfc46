// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom close codes for the gateway, in the 3000-3999 application range.
// Auth failures are rejected with a plain 401 before the upgrade.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // client did not negotiate the erps subprotocol
)
