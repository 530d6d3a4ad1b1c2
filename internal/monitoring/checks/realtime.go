package checks

import (
	"context"
	"fmt"

	"github.com/teamsync/teamsync/internal/monitoring"
)

// ConnectionCounter is satisfied by the realtime hub.
type ConnectionCounter interface {
	Connections() int
}

// Realtime reports how many websocket clients are attached. A missing hub
// degrades the service; chat and roster updates still work over HTTP.
func Realtime(hub ConnectionCounter) monitoring.Check {
	return monitoring.NewCheck("realtime", func(context.Context) monitoring.ProbeResult {
		if hub == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "realtime hub unavailable"}
		}
		return monitoring.ProbeResult{
			Status:  monitoring.StatusUp,
			Details: fmt.Sprintf("%d connections", hub.Connections()),
		}
	})
}
