// Package protocol defines the plain-text frames exchanged with clients.
//
// Client -> Server:
//   - the termination sentinel "gameend" (case-insensitive), or
//   - a textual integer. The first move of a session may be any integer;
//     every later move must parse to -1, 0 or 1.
//
// Server -> Client: the notices below. Clients never see raw internal errors.
package protocol

import (
	"fmt"
	"strings"
)

// Sentinel ends a session when received, and is broadcast to the cohort
// right before their connections are closed.
const Sentinel = "gameend"

const (
	FirstTurnNotice    = "You have the first turn"
	InvalidInputNotice = "Invalid input. User can only return 1, 0, -1"
	NotYourTurnNotice  = "It's not your turn."
	ForfeitNotice      = "Opponent disconnected. You win!"
)

// IsSentinel reports whether a raw inbound frame is the termination sentinel.
func IsSentinel(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), Sentinel)
}

// RoleNotice greets a participant with their seat number.
func RoleNotice(number int) string {
	return fmt.Sprintf("Game started! You are Player %d.", number)
}

// ValueNotice carries the running value to the participant due to move next,
// tagged with the seat number of the participant who just moved.
func ValueNotice(number, value int) string {
	return fmt.Sprintf("Player %d: %d", number, value)
}

// WinNotice announces the winning seat to the whole cohort.
func WinNotice(number int) string {
	return fmt.Sprintf("Player %d Won!", number)
}
