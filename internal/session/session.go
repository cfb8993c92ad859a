// Package session labels a timestamp with the trading session active at its
// UTC hour, shared by the signal log, auto-logger, and performance analyzer.
package session

import (
	"time"

	"github.com/quartzline/goldintel/pkg/types"
)

// Of returns the Session label for t's UTC hour, following the boundaries
// confirmed in the original signal logger: Asia 00-07, London open 07-08,
// London 08-13, New York open 13-14, overlap 14-17, New York 17-21, New York
// close 21-24.
func Of(t time.Time) types.Session {
	h := t.UTC().Hour()
	switch {
	case h >= 0 && h < 7:
		return types.SessionAsia
	case h >= 7 && h < 8:
		return types.SessionLondonOpen
	case h >= 8 && h < 13:
		return types.SessionLondon
	case h >= 13 && h < 14:
		return types.SessionNYOpen
	case h >= 14 && h < 17:
		return types.SessionOverlap
	case h >= 17 && h < 21:
		return types.SessionNY
	default:
		return types.SessionNYClose
	}
}
