// Package engine holds the pure turn state machine for a single session.
// It performs no I/O; callers feed it commands and deliver the resulting
// events to participants.
package engine

import (
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/ibrahimsoomro/game-of-three/pkg/protocol"
)

var ErrWrongTurn = errors.New("not this participant's turn")
var ErrInvalidInput = errors.New("invalid move input")
var ErrUnknownParticipant = errors.New("participant not in session")
var ErrNotStarted = errors.New("session has not started")
var ErrAlreadyStarted = errors.New("session already started")
var ErrGameAlreadyCompleted = errors.New("game already completed")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Seat binds a participant id to its 1-based cohort position. Number is fixed
// at construction so notices keep stable numbering even after a seat is
// removed by a disconnect.
type Seat struct {
	ParticipantID string
	Number        int
}

type State struct {
	Status  Status
	Seats   []Seat
	Current int // index into Seats; always valid while seats remain
	Running int // shared converging value, defined once Turns > 0
	Turns   int
}

type CommandType string

const (
	CmdMove  CommandType = "Move"
	CmdLeave CommandType = "Leave"
)

type Command struct {
	Type          CommandType
	ParticipantID string
	Raw           string // textual move input, CmdMove only
}

type EventType string

const (
	EvtValueUpdated EventType = "ValueUpdated"
	// EvtTurnAdvanced records the seat whose turn it now is. Sessions derive
	// the turn from the value notice instead; the event is for observers and
	// tests reading the event stream.
	EvtTurnAdvanced  EventType = "TurnAdvanced"
	EvtGameWon       EventType = "GameWon"
	EvtForfeitWin    EventType = "ForfeitWin"
	EvtGameCompleted EventType = "GameCompleted"
)

type Event struct {
	Type  EventType
	Seat  int // 1-based seat number the event concerns
	Value int
}

// New builds a waiting state for an ordered cohort. The first turn index is
// supplied by the caller so tests can pin it.
func New(participantIDs []string, first int) (State, error) {
	if len(participantIDs) < 2 {
		return State{}, errors.New("cohort needs at least 2 participants")
	}
	if first < 0 || first >= len(participantIDs) {
		return State{}, errors.New("first turn index out of range")
	}
	seats := make([]Seat, len(participantIDs))
	for i, id := range participantIDs {
		seats[i] = Seat{ParticipantID: id, Number: i + 1}
	}
	return State{Status: StatusWaiting, Seats: seats, Current: first}, nil
}

// Begin moves a waiting session into play. Called once persistence has
// succeeded; a session that failed to persist never begins.
func Begin(s State) (State, error) {
	if s.Status != StatusWaiting {
		return s, ErrAlreadyStarted
	}
	s.Status = StatusInProgress
	return s, nil
}

// Finish marks the session terminal. Finished is a one-way transition.
func Finish(s State) State {
	s.Status = StatusFinished
	return s
}

// Apply runs one command against the state and returns the events to deliver
// plus the successor state. On error the returned state is unchanged.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdMove:
		return applyMove(s, cmd)
	case CmdLeave:
		return applyLeave(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyMove(s State, cmd Command) ([]Event, State, error) {
	if s.Status == StatusFinished {
		return nil, s, ErrGameAlreadyCompleted
	}
	if s.Status != StatusInProgress {
		return nil, s, ErrNotStarted
	}
	seat := seatIndex(s, cmd.ParticipantID)
	if seat < 0 {
		return nil, s, ErrUnknownParticipant
	}

	// Sentinel frames are an end request, not a move; the orchestrator owns
	// that path.
	if protocol.IsSentinel(cmd.Raw) {
		return nil, s, nil
	}

	move, err := strconv.Atoi(strings.TrimSpace(cmd.Raw))
	if err != nil {
		return nil, s, ErrInvalidInput
	}
	// Only the opening move may be an arbitrary integer.
	if s.Turns != 0 && (move < -1 || move > 1) {
		return nil, s, ErrInvalidInput
	}
	if seat != s.Current {
		return nil, s, ErrWrongTurn
	}

	next := s
	if s.Turns == 0 {
		next.Running = move
	} else {
		next.Running = roundThird(s.Running + move)
	}

	if next.Running == 1 {
		next.Status = StatusFinished
		return []Event{
			{Type: EvtGameWon, Seat: s.Seats[s.Current].Number, Value: next.Running},
			{Type: EvtGameCompleted},
		}, next, nil
	}

	next.Current = (s.Current + 1) % len(s.Seats)
	next.Turns = s.Turns + 1
	return []Event{
		{Type: EvtValueUpdated, Seat: s.Seats[seat].Number, Value: next.Running},
		{Type: EvtTurnAdvanced, Seat: next.Seats[next.Current].Number},
	}, next, nil
}

func applyLeave(s State, cmd Command) ([]Event, State, error) {
	idx := seatIndex(s, cmd.ParticipantID)
	if idx < 0 {
		return nil, s, ErrUnknownParticipant
	}

	next := s
	next.Seats = slices.Delete(slices.Clone(s.Seats), idx, idx+1)
	if idx < next.Current {
		next.Current--
	} else if next.Current >= len(next.Seats) {
		next.Current = 0
	}

	// A single remaining seat wins by forfeit. With larger cohorts play
	// continues around the shrunken circle.
	if len(next.Seats) == 1 && s.Status == StatusInProgress {
		next.Status = StatusFinished
		return []Event{
			{Type: EvtForfeitWin, Seat: next.Seats[0].Number},
			{Type: EvtGameCompleted},
		}, next, nil
	}
	return nil, next, nil
}

// roundThird divides by three rounding half away from zero, matching
// math.Round: round((9+0)/3)=3, round((3+0)/3)=1, round(2/3)=1.
func roundThird(sum int) int {
	return int(math.Round(float64(sum) / 3.0))
}

func seatIndex(s State, participantID string) int {
	for i, seat := range s.Seats {
		if seat.ParticipantID == participantID {
			return i
		}
	}
	return -1
}

// HasParticipant reports whether the participant still holds a seat.
func HasParticipant(s State, participantID string) bool {
	return seatIndex(s, participantID) >= 0
}

// ParticipantIDs lists the current seats in order.
func ParticipantIDs(s State) []string {
	ids := make([]string, len(s.Seats))
	for i, seat := range s.Seats {
		ids[i] = seat.ParticipantID
	}
	return ids
}

// CurrentSeat returns the seat whose turn it is.
func CurrentSeat(s State) (Seat, bool) {
	if s.Current < 0 || s.Current >= len(s.Seats) {
		return Seat{}, false
	}
	return s.Seats[s.Current], true
}
