package constants

// Paths of the operational endpoints and the socket.
const (
	PathHealth = "/health"
	PathReady  = "/ready"
	PathStats  = "/stats"
	PathSocket = "/ws"
)
