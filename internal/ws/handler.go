// Package ws bridges raw websocket connections to the hub: it assigns each
// connection an identity and re-exposes its frames, closure, and errors as
// hub messages. No game logic lives here.
package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibrahimsoomro/game-of-three/internal/hub"
)

const writeTimeout = 3 * time.Second

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		participantID := uuid.NewString()
		outbox := make(chan string, 8)

		// Writer goroutine: drains notices until the outbox is closed by the
		// hub or the owning session. A failed write is a transport error
		// only; it never ends the game.
		writeCtx, writeCancel := context.WithCancel(context.Background())
		defer writeCancel()
		go func() {
			for text := range outbox {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				if err := conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
					log.Warn("write to participant failed",
						zap.String("participant_id", participantID), zap.Error(err))
				}
				cancel()
			}
		}()

		h.Inbox() <- hub.Connect{
			ParticipantID: participantID,
			Outbox:        outbox,
			Close: func() {
				_ = conn.Close(websocket.StatusNormalClosure, "game over")
			},
		}
		defer func() { h.Inbox() <- hub.Disconnect{ParticipantID: participantID} }()

		// Reader loop. No read deadline: a session waits indefinitely for
		// the current participant's move.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read from participant ended",
						zap.String("participant_id", participantID), zap.Error(err))
				}
				return
			}
			h.Inbox() <- hub.Inbound{ParticipantID: participantID, Text: string(data)}
		}
	}
}
