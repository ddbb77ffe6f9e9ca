// Package hub is the orchestrator: a single actor goroutine that owns the
// registry of live sessions, runs matchmaking, and routes connection events
// to the owning session. Running matchmaking inline in the loop is what makes
// the fetch-then-claim sequence a critical section; no two claims can
// interleave on the same participant.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/ibrahimsoomro/game-of-three/internal/matchmaking"
	"github.com/ibrahimsoomro/game-of-three/internal/session"
	"github.com/ibrahimsoomro/game-of-three/internal/storage"
	"github.com/ibrahimsoomro/game-of-three/pkg/protocol"
)

type HubMsg interface{ isHubMsg() }

// Connect registers a freshly accepted connection and triggers matchmaking.
type Connect struct {
	ParticipantID string
	Outbox        chan string
	Close         func()
}

// Inbound is a text frame from a participant.
type Inbound struct {
	ParticipantID string
	Text          string
}

// Disconnect reports a dropped connection.
type Disconnect struct{ ParticipantID string }

// SessionFinished tells the hub to forget a torn-down session.
type SessionFinished struct{ SessionID string }

// GetStats replies with a registry snapshot.
type GetStats struct{ Reply chan Stats }

type ShutdownHub struct{}

func (Connect) isHubMsg()         {}
func (Inbound) isHubMsg()         {}
func (Disconnect) isHubMsg()      {}
func (SessionFinished) isHubMsg() {}
func (GetStats) isHubMsg()        {}
func (ShutdownHub) isHubMsg()     {}

type Stats struct {
	LiveSessions        int `json:"live_sessions"`
	WaitingParticipants int `json:"waiting_participants"`
}

type client struct {
	outbox chan string
	close  func()
}

type Config struct {
	Participants storage.ParticipantStore
	Sessions     storage.SessionStore
	Log          *zap.Logger
	CohortSize   int
	// PurgeAllOnEnd and FirstTurn are handed through to each session.
	PurgeAllOnEnd bool
	FirstTurn     func(n int) int
}

type Hub struct {
	inbox         chan HubMsg
	clients       map[string]client
	sessions      map[string]*session.Session
	byParticipant map[string]*session.Session
	queue         *matchmaking.Queue
	participants  storage.ParticipantStore
	sessionStore  storage.SessionStore
	log           *zap.Logger
	purgeAll      bool
	firstTurn     func(n int) int
	ctx           context.Context
	cancel        context.CancelFunc
}

func New(parent context.Context, cfg Config) (*Hub, error) {
	queue, err := matchmaking.NewQueue(cfg.Participants, cfg.CohortSize)
	if err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:         make(chan HubMsg, 64),
		clients:       make(map[string]client),
		sessions:      make(map[string]*session.Session),
		byParticipant: make(map[string]*session.Session),
		queue:         queue,
		participants:  cfg.Participants,
		sessionStore:  cfg.Sessions,
		log:           log,
		purgeAll:      cfg.PurgeAllOnEnd,
		firstTurn:     cfg.FirstTurn,
		ctx:           ctx,
		cancel:        cancel,
	}
	go h.loop()
	return h, nil
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Connect:
				h.handleConnect(msg)

			case Inbound:
				sess := h.byParticipant[msg.ParticipantID]
				if sess == nil {
					// Unmatched participants have nobody to talk to yet.
					break
				}
				if protocol.IsSentinel(msg.Text) {
					h.forward(sess, session.EndRequest{ParticipantID: msg.ParticipantID})
					break
				}
				h.forward(sess, session.Move{ParticipantID: msg.ParticipantID, Raw: msg.Text})

			case Disconnect:
				h.handleDisconnect(msg)

			case SessionFinished:
				sess := h.sessions[msg.SessionID]
				if sess == nil {
					break
				}
				// The session closed the cohort's connections itself; only
				// the registry entries remain.
				for _, pid := range sess.ParticipantIDs() {
					delete(h.byParticipant, pid)
					delete(h.clients, pid)
				}
				delete(h.sessions, msg.SessionID)

			case GetStats:
				msg.Reply <- Stats{
					LiveSessions:        len(h.sessions),
					WaitingParticipants: len(h.clients) - len(h.byParticipant),
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) handleConnect(msg Connect) {
	if err := h.participants.Save(h.ctx, msg.ParticipantID); err != nil {
		h.log.Error("persist participant",
			zap.String("participant_id", msg.ParticipantID), zap.Error(err))
		close(msg.Outbox)
		if msg.Close != nil {
			msg.Close()
		}
		return
	}
	h.clients[msg.ParticipantID] = client{outbox: msg.Outbox, close: msg.Close}
	h.matchmake()
}

func (h *Hub) handleDisconnect(msg Disconnect) {
	sess := h.byParticipant[msg.ParticipantID]
	if sess != nil {
		// The session sends the forfeit notice, persists the teardown, and
		// reports back with SessionFinished.
		h.forward(sess, session.Disconnect{ParticipantID: msg.ParticipantID})
		return
	}

	cl, ok := h.clients[msg.ParticipantID]
	if !ok {
		return
	}
	delete(h.clients, msg.ParticipantID)
	close(cl.outbox)
	if err := h.participants.Remove(h.ctx, msg.ParticipantID); err != nil {
		h.log.Error("remove participant record",
			zap.String("participant_id", msg.ParticipantID), zap.Error(err))
	}
}

// matchmake drains full cohorts and starts a session per cohort. A session
// whose Start fails is never registered.
func (h *Hub) matchmake() {
	cohorts, err := h.queue.DrainCohorts(h.ctx)
	if err != nil {
		h.log.Error("matchmaking fetch failed", zap.Error(err))
		return
	}

	for _, cohort := range cohorts {
		parts := make([]session.Participant, 0, len(cohort))
		for _, pid := range cohort {
			cl, ok := h.clients[pid]
			if !ok {
				break
			}
			parts = append(parts, session.Participant{ID: pid, Outbox: cl.outbox, Close: cl.close})
		}
		if len(parts) != len(cohort) {
			// A record without a live connection; leave the cohort waiting
			// rather than seat a ghost.
			h.log.Warn("cohort member has no live connection", zap.Strings("cohort", cohort))
			continue
		}

		sess, err := session.New(h.ctx, session.Config{
			Participants:  parts,
			Sessions:      h.sessionStore,
			Records:       h.participants,
			Log:           h.log,
			FirstTurn:     h.firstTurn,
			PurgeAllOnEnd: h.purgeAll,
			OnFinished:    h.notifyFinished,
		})
		if err != nil {
			h.log.Error("construct session", zap.Error(err))
			continue
		}
		if err := sess.Start(h.ctx); err != nil {
			h.log.Error("session start aborted",
				zap.String("session_id", sess.ID()), zap.Error(err))
			continue
		}

		h.sessions[sess.ID()] = sess
		for _, pid := range cohort {
			h.byParticipant[pid] = sess
		}
		h.log.Info("session started",
			zap.String("session_id", sess.ID()), zap.Strings("cohort", cohort))
	}
}

// notifyFinished runs on a session goroutine; it must not touch hub state.
func (h *Hub) notifyFinished(sessionID string) {
	select {
	case h.inbox <- SessionFinished{SessionID: sessionID}:
	case <-h.ctx.Done():
	}
}

// forward hands a message to a session without blocking the loop. A finished
// session stops draining its inbox before SessionFinished clears the registry;
// frames arriving in that window are dropped, never queued against the hub.
func (h *Hub) forward(sess *session.Session, m session.Msg) {
	select {
	case sess.Inbox() <- m:
	default:
		h.log.Warn("session inbox full, dropping message",
			zap.String("session_id", sess.ID()))
	}
}

func (h *Hub) shutdown() {
	for _, sess := range h.sessions {
		h.forward(sess, session.Shutdown{})
	}
	// Sessions close their cohort's connections; unmatched clients are ours.
	for pid, cl := range h.clients {
		if h.byParticipant[pid] != nil {
			continue
		}
		close(cl.outbox)
		if cl.close != nil {
			cl.close()
		}
	}
	clear(h.clients)
	clear(h.sessions)
	clear(h.byParticipant)
	h.cancel()
}
