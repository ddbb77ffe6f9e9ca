// Package session runs one live game session as an actor goroutine, the
// owner of the cohort's turn state and connection outboxes. The orchestrator
// talks to it only through its inbox.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibrahimsoomro/game-of-three/internal/engine"
	"github.com/ibrahimsoomro/game-of-three/internal/storage"
	"github.com/ibrahimsoomro/game-of-three/pkg/protocol"
)

type Msg interface{ isSessionMsg() }

// Move is an inbound textual move from a participant.
type Move struct {
	ParticipantID string
	Raw           string
}

func (Move) isSessionMsg() {}

// Disconnect reports that a participant's connection dropped.
type Disconnect struct{ ParticipantID string }

func (Disconnect) isSessionMsg() {}

// EndRequest is the termination sentinel, routed here by the orchestrator.
type EndRequest struct{ ParticipantID string }

func (EndRequest) isSessionMsg() {}

// GetView reflects internal state without data races; test-only.
type GetView struct{ Reply chan View }

func (GetView) isSessionMsg() {}

// Shutdown stops the session without touching persisted state.
type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type View struct {
	ID    string
	State engine.State
}

// Participant couples an identity with its live connection endpoints. The
// outbox feeds the connection's writer; Close tears the transport down.
type Participant struct {
	ID     string
	Outbox chan string
	Close  func()
}

type Config struct {
	Participants []Participant // seat order
	Sessions     storage.SessionStore
	Records      storage.ParticipantStore
	Log          *zap.Logger
	// FirstTurn picks the opening seat index; nil means uniform random.
	FirstTurn func(n int) int
	// PurgeAllOnEnd removes every cohort member's record on teardown rather
	// than only the participant that triggered the end.
	PurgeAllOnEnd bool
	// OnFinished tells the orchestrator to deregister the session. Called
	// after teardown persistence completes.
	OnFinished func(sessionID string)
}

type Session struct {
	id         string
	inbox      chan Msg
	state      engine.State
	conns      map[string]Participant
	cohort     []string // seat-ordered ids, fixed at construction
	sessions   storage.SessionStore
	records    storage.ParticipantStore
	log        *zap.Logger
	purgeAll   bool
	onFinished func(string)
	ctx        context.Context
	cancel     context.CancelFunc
}

// New builds a session for a full cohort. The session is inert until Start.
func New(parent context.Context, cfg Config) (*Session, error) {
	if len(cfg.Participants) < 2 {
		return nil, errors.New("cohort needs at least 2 participants")
	}
	ids := make([]string, len(cfg.Participants))
	conns := make(map[string]Participant, len(cfg.Participants))
	for i, p := range cfg.Participants {
		ids[i] = p.ID
		conns[p.ID] = p
	}

	firstTurn := cfg.FirstTurn
	if firstTurn == nil {
		firstTurn = rand.Intn
	}
	state, err := engine.New(ids, firstTurn(len(ids)))
	if err != nil {
		return nil, err
	}

	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:         uuid.NewString(),
		inbox:      make(chan Msg, 64),
		state:      state,
		conns:      conns,
		cohort:     ids,
		sessions:   cfg.Sessions,
		records:    cfg.Records,
		log:        log,
		purgeAll:   cfg.PurgeAllOnEnd,
		onFinished: cfg.OnFinished,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Inbox() chan<- Msg { return s.inbox }

// ParticipantIDs returns the cohort in seat order as fixed at construction.
func (s *Session) ParticipantIDs() []string {
	ids := make([]string, len(s.cohort))
	copy(ids, s.cohort)
	return ids
}

// Start persists the session and the participant claims, greets the cohort,
// and spawns the loop. If persistence fails nothing starts and the error
// propagates; the caller must not register the session.
func (s *Session) Start(ctx context.Context) error {
	if err := s.sessions.Create(ctx, s.id, s.cohort); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := s.records.AssignToSession(ctx, s.cohort, s.id); err != nil {
		if rbErr := s.sessions.Remove(ctx, s.id); rbErr != nil {
			s.log.Error("roll back session record",
				zap.String("session_id", s.id), zap.Error(rbErr))
		}
		return fmt.Errorf("claim participants: %w", err)
	}

	state, err := engine.Begin(s.state)
	if err != nil {
		return err
	}
	s.state = state

	for _, seat := range s.state.Seats {
		s.send(seat.ParticipantID, protocol.RoleNotice(seat.Number))
	}
	if seat, ok := engine.CurrentSeat(s.state); ok {
		s.send(seat.ParticipantID, protocol.FirstTurnNotice)
	}

	go s.loop()
	return nil
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.closeConns()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Move:
				if s.handleMove(msg) {
					return
				}
			case Disconnect:
				if s.handleDisconnect(msg) {
					return
				}
			case EndRequest:
				// Explicit broadcast before closing; the sentinel doubles as
				// the outbound end-of-game frame.
				s.broadcast(protocol.Sentinel)
				s.state = engine.Finish(s.state)
				s.finish(msg.ParticipantID)
				return
			case GetView:
				msg.Reply <- View{ID: s.id, State: s.state}
			case Shutdown:
				s.closeConns()
				s.cancel()
				return
			}
		}
	}
}

// handleMove reports whether the session finished.
func (s *Session) handleMove(msg Move) bool {
	events, state, err := engine.Apply(s.state, engine.Command{
		Type:          engine.CmdMove,
		ParticipantID: msg.ParticipantID,
		Raw:           msg.Raw,
	})
	if err != nil {
		// Rejections are reported to the sender only; state is unchanged.
		switch {
		case errors.Is(err, engine.ErrInvalidInput):
			s.send(msg.ParticipantID, protocol.InvalidInputNotice)
		case errors.Is(err, engine.ErrWrongTurn):
			s.send(msg.ParticipantID, protocol.NotYourTurnNotice)
		default:
			s.log.Warn("move rejected",
				zap.String("session_id", s.id),
				zap.String("participant_id", msg.ParticipantID),
				zap.Error(err))
		}
		return false
	}
	s.state = state

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtValueUpdated:
			// The running value goes to the participant now due to move,
			// tagged with the mover's number.
			if seat, ok := engine.CurrentSeat(s.state); ok {
				s.send(seat.ParticipantID, protocol.ValueNotice(ev.Seat, ev.Value))
			}
		case engine.EvtGameWon:
			s.broadcast(protocol.WinNotice(ev.Seat))
		}
	}

	if s.state.Status == engine.StatusFinished {
		s.finish(msg.ParticipantID)
		return true
	}
	return false
}

// handleDisconnect reports whether the session finished.
func (s *Session) handleDisconnect(msg Disconnect) bool {
	events, state, err := engine.Apply(s.state, engine.Command{
		Type:          engine.CmdLeave,
		ParticipantID: msg.ParticipantID,
	})
	if err != nil {
		s.log.Warn("disconnect for unknown participant",
			zap.String("session_id", s.id),
			zap.String("participant_id", msg.ParticipantID))
		return false
	}
	s.state = state

	// The leaver's connection is gone; release its writer.
	if p, ok := s.conns[msg.ParticipantID]; ok {
		close(p.Outbox)
		delete(s.conns, msg.ParticipantID)
	}

	for _, ev := range events {
		if ev.Type == engine.EvtForfeitWin {
			for _, seat := range s.state.Seats {
				if seat.Number == ev.Seat {
					s.send(seat.ParticipantID, protocol.ForfeitNotice)
				}
			}
		}
	}

	if s.state.Status == engine.StatusFinished {
		s.finish(msg.ParticipantID)
		return true
	}
	return false
}

// finish runs the teardown sequence: participant record cleanup, session
// persisted inactive then removed, connections closed, orchestrator
// notified. Every step is attempted even when an earlier one fails, so a
// session never survives in the registry after its participants were told
// the game ended.
func (s *Session) finish(triggerID string) {
	targets := []string{triggerID}
	if s.purgeAll {
		targets = s.cohort
	}
	for _, id := range targets {
		if err := s.records.Remove(s.ctx, id); err != nil {
			s.log.Error("remove participant record",
				zap.String("participant_id", id), zap.Error(err))
		}
	}

	if err := s.sessions.SetActive(s.ctx, s.id, false); err != nil {
		s.log.Error("mark session inactive",
			zap.String("session_id", s.id), zap.Error(err))
	}
	if err := s.sessions.Remove(s.ctx, s.id); err != nil {
		s.log.Error("remove session record",
			zap.String("session_id", s.id), zap.Error(err))
	}

	s.closeConns()
	if s.onFinished != nil {
		s.onFinished(s.id)
	}
	s.cancel()
}

func (s *Session) closeConns() {
	for id, p := range s.conns {
		close(p.Outbox)
		if p.Close != nil {
			p.Close()
		}
		delete(s.conns, id)
	}
}

func (s *Session) send(participantID, text string) {
	p, ok := s.conns[participantID]
	if !ok {
		return
	}
	select {
	case p.Outbox <- text:
	default:
		// Delivery failure never terminates the session.
		s.log.Warn("participant outbox full, dropping notice",
			zap.String("session_id", s.id),
			zap.String("participant_id", participantID))
	}
}

func (s *Session) broadcast(text string) {
	for id := range s.conns {
		s.send(id, text)
	}
}
