package engine

import (
	"errors"
	"testing"
)

func inProgress(t *testing.T, ids []string, first int) State {
	t.Helper()
	s, err := New(ids, first)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err = Begin(s)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return s
}

func containsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func TestFirstMoveSetsRunningValueVerbatim(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{name: "positive", raw: "9", want: 9},
		{name: "negative", raw: "-56", want: -56},
		{name: "zero", raw: "0", want: 0},
		{name: "large", raw: "100000", want: 100000},
		{name: "padded", raw: "  42 ", want: 42},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := inProgress(t, []string{"a", "b"}, 0)
			_, next, err := Apply(s, Command{Type: CmdMove, ParticipantID: "a", Raw: tc.raw})
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if next.Running != tc.want {
				t.Fatalf("Running: got %d, want %d", next.Running, tc.want)
			}
			if next.Turns != 1 {
				t.Fatalf("Turns: got %d, want 1", next.Turns)
			}
		})
	}
}

func TestScriptedSequenceConvergesToWin(t *testing.T) {
	// 9 -> round(9/3)=3 -> round(3/3)=1 -> second mover wins.
	s := inProgress(t, []string{"a", "b"}, 0)

	_, s, err := Apply(s, Command{Type: CmdMove, ParticipantID: "a", Raw: "9"})
	if err != nil {
		t.Fatalf("first move: %v", err)
	}

	_, s, err = Apply(s, Command{Type: CmdMove, ParticipantID: "b", Raw: "0"})
	if err != nil {
		t.Fatalf("second move: %v", err)
	}
	if s.Running != 3 {
		t.Fatalf("after second move: Running=%d, want 3", s.Running)
	}

	events, s, err := Apply(s, Command{Type: CmdMove, ParticipantID: "a", Raw: "0"})
	if err != nil {
		t.Fatalf("third move: %v", err)
	}
	if s.Running != 1 {
		t.Fatalf("after third move: Running=%d, want 1", s.Running)
	}
	if s.Status != StatusFinished {
		t.Fatalf("want finished, got %v", s.Status)
	}
	if !containsEvent(events, EvtGameWon) || !containsEvent(events, EvtGameCompleted) {
		t.Fatalf("expected win events, got %+v", events)
	}
	if events[0].Seat != 1 {
		t.Fatalf("winner seat: got %d, want 1 (the mover)", events[0].Seat)
	}
}

func TestRoundingHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		sum  int
		want int
	}{
		{sum: 2, want: 1},
		{sum: -2, want: -1},
		{sum: 4, want: 1},
		{sum: 5, want: 2},
		{sum: -5, want: -2},
		{sum: 7, want: 2},
		{sum: 8, want: 3},
		{sum: 0, want: 0},
	}
	for _, tc := range cases {
		if got := roundThird(tc.sum); got != tc.want {
			t.Errorf("roundThird(%d): got %d, want %d", tc.sum, got, tc.want)
		}
	}
}

func TestRejectionsLeaveStateUntouched(t *testing.T) {
	base := inProgress(t, []string{"a", "b"}, 0)
	_, base, err := Apply(base, Command{Type: CmdMove, ParticipantID: "a", Raw: "9"})
	if err != nil {
		t.Fatalf("setup move: %v", err)
	}

	cases := []struct {
		name    string
		cmd     Command
		wantErr error
	}{
		{
			name:    "out of range non-first move",
			cmd:     Command{Type: CmdMove, ParticipantID: "b", Raw: "5"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "unparseable input",
			cmd:     Command{Type: CmdMove, ParticipantID: "b", Raw: "abc"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "out of turn",
			cmd:     Command{Type: CmdMove, ParticipantID: "a", Raw: "0"},
			wantErr: ErrWrongTurn,
		},
		{
			name:    "unknown participant",
			cmd:     Command{Type: CmdMove, ParticipantID: "intruder", Raw: "0"},
			wantErr: ErrUnknownParticipant,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(base, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err: got %v, want %v", err, tc.wantErr)
			}
			if len(events) != 0 {
				t.Fatalf("expected no events, got %+v", events)
			}
			if next.Running != base.Running || next.Turns != base.Turns || next.Current != base.Current {
				t.Fatalf("state mutated: %+v vs %+v", next, base)
			}
		})
	}
}

func TestRangeCheckRunsBeforeTurnCheck(t *testing.T) {
	// A non-current participant sending junk hears about the junk, not the
	// turn order.
	s := inProgress(t, []string{"a", "b"}, 0)
	_, s, err := Apply(s, Command{Type: CmdMove, ParticipantID: "a", Raw: "9"})
	if err != nil {
		t.Fatalf("setup move: %v", err)
	}

	_, _, err = Apply(s, Command{Type: CmdMove, ParticipantID: "a", Raw: "7"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput before ErrWrongTurn, got %v", err)
	}
}

func TestSentinelShortCircuitsWithoutStateChange(t *testing.T) {
	s := inProgress(t, []string{"a", "b"}, 0)
	events, next, err := Apply(s, Command{Type: CmdMove, ParticipantID: "a", Raw: "GameEnd"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(events) != 0 || next.Turns != s.Turns || next.Running != s.Running {
		t.Fatalf("sentinel must not process a move: %+v %+v", events, next)
	}
}

func TestFirstMoveOfOneWinsImmediately(t *testing.T) {
	s := inProgress(t, []string{"a", "b"}, 0)
	events, next, err := Apply(s, Command{Type: CmdMove, ParticipantID: "a", Raw: "1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if next.Status != StatusFinished {
		t.Fatalf("want finished, got %v", next.Status)
	}
	if !containsEvent(events, EvtGameWon) {
		t.Fatalf("expected EvtGameWon, got %+v", events)
	}
}

func TestTurnAlternates(t *testing.T) {
	s := inProgress(t, []string{"a", "b"}, 1)
	if seat, _ := CurrentSeat(s); seat.ParticipantID != "b" {
		t.Fatalf("first turn: got %q, want b", seat.ParticipantID)
	}

	_, s, err := Apply(s, Command{Type: CmdMove, ParticipantID: "b", Raw: "10"})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if seat, _ := CurrentSeat(s); seat.ParticipantID != "a" {
		t.Fatalf("second turn: got %q, want a", seat.ParticipantID)
	}
}

func TestLeaveWithTwoSeatsDeclaresForfeit(t *testing.T) {
	s := inProgress(t, []string{"a", "b"}, 0)
	events, next, err := Apply(s, Command{Type: CmdLeave, ParticipantID: "a"})
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if next.Status != StatusFinished {
		t.Fatalf("want finished, got %v", next.Status)
	}
	if !containsEvent(events, EvtForfeitWin) {
		t.Fatalf("expected EvtForfeitWin, got %+v", events)
	}
	if events[0].Seat != 2 {
		t.Fatalf("forfeit winner seat: got %d, want 2", events[0].Seat)
	}
	if len(next.Seats) != 1 || next.Seats[0].ParticipantID != "b" {
		t.Fatalf("remaining seats: %+v", next.Seats)
	}
	if _, ok := CurrentSeat(next); !ok {
		t.Fatalf("current index out of range after removal")
	}
}

func TestLeaveWithLargerCohortKeepsPlaying(t *testing.T) {
	s := inProgress(t, []string{"a", "b", "c"}, 2)
	events, next, err := Apply(s, Command{Type: CmdLeave, ParticipantID: "a"})
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if next.Status != StatusInProgress {
		t.Fatalf("want in progress, got %v", next.Status)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
	// Seat "c" held index 2; after removing index 0 it must still be current.
	if seat, _ := CurrentSeat(next); seat.ParticipantID != "c" {
		t.Fatalf("current after removal: got %q, want c", seat.ParticipantID)
	}
	// Original numbering survives the removal.
	if next.Seats[1].Number != 3 {
		t.Fatalf("seat numbering shifted: %+v", next.Seats)
	}
}

func TestMoveBeforeBeginAndAfterFinishRejected(t *testing.T) {
	s, err := New([]string{"a", "b"}, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := Apply(s, Command{Type: CmdMove, ParticipantID: "a", Raw: "3"}); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("want ErrNotStarted, got %v", err)
	}

	s = Finish(s)
	if _, _, err := Apply(s, Command{Type: CmdMove, ParticipantID: "a", Raw: "3"}); !errors.Is(err, ErrGameAlreadyCompleted) {
		t.Fatalf("want ErrGameAlreadyCompleted, got %v", err)
	}
}

func TestNewValidatesCohortAndFirstIndex(t *testing.T) {
	if _, err := New([]string{"solo"}, 0); err == nil {
		t.Fatalf("expected error for undersized cohort")
	}
	if _, err := New([]string{"a", "b"}, 2); err == nil {
		t.Fatalf("expected error for out-of-range first index")
	}
	if _, err := New([]string{"a", "b"}, -1); err == nil {
		t.Fatalf("expected error for negative first index")
	}
}

func TestBeginOnlyOnce(t *testing.T) {
	s := inProgress(t, []string{"a", "b"}, 0)
	if _, err := Begin(s); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("want ErrAlreadyStarted, got %v", err)
	}
}
