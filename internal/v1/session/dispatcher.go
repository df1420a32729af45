package session

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/clashdeck/backend/internal/v1/game"
	"github.com/clashdeck/backend/internal/v1/logging"
	"github.com/clashdeck/backend/internal/v1/metrics"
)

// Inbound event names. Anything outside this set is BAD_REQUEST.
const (
	eventGetRooms   = "getRooms"
	eventCreateRoom = "createRoom"
	eventJoinRoom   = "joinRoom"
	eventDrawCards  = "drawCards"
	eventPlayCard   = "playCard"
	eventAttack     = "attack"
	eventEndTurn    = "endTurn"
)

// flexInt64 accepts JSON integers and string-encoded integers, which
// some clients emit for ids. Anything non-integer fails.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt64(v)
	return nil
}

type createRoomPayload struct {
	DeckID flexInt64 `json:"deckId"`
}

type joinRoomPayload struct {
	RoomID flexInt64 `json:"roomId"`
	DeckID flexInt64 `json:"deckId"`
}

type roomActionPayload struct {
	RoomID flexInt64 `json:"roomId"`
}

type playCardPayload struct {
	RoomID    flexInt64 `json:"roomId"`
	CardIndex flexInt64 `json:"cardIndex"`
}

// dispatch decodes one inbound frame and routes it into the registry.
// All rejections flow back to the offending session as an error event;
// the connection stays open.
func (h *Hub) dispatch(c *Client, raw []byte) {
	start := time.Now()

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		h.sendError(c, "", game.CodeBadRequest)
		metrics.SocketEvents.WithLabelValues("invalid", "error").Inc()
		return
	}

	err := h.route(c, env)

	status := "ok"
	if err != nil {
		status = "error"
		h.sendError(c, env.Event, game.CodeOf(err))
	}
	metrics.SocketEvents.WithLabelValues(env.Event, status).Inc()
	metrics.EventProcessingDuration.WithLabelValues(env.Event).Observe(time.Since(start).Seconds())
}

// route runs one event against the registry. A handler panic is
// recovered here and reported as INTERNAL; one bad event must never
// take the server down.
func (h *Hub) route(c *Client, env envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(context.Background(), "panic in event handler",
				zap.String("event", env.Event),
				zap.String("sessionId", c.sess.ID),
				zap.Any("panic", r))
			err = game.E(game.CodeInternal)
		}
	}()

	ctx := context.Background()

	switch env.Event {
	case eventGetRooms:
		h.SendTo(c.sess.ID, game.EventRoomsList, h.registry.ListWaiting())
		return nil

	case eventCreateRoom:
		var p createRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.E(game.CodeBadRequest)
		}
		return h.registry.CreateRoom(ctx, c.sess, int64(p.DeckID))

	case eventJoinRoom:
		var p joinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.E(game.CodeBadRequest)
		}
		return h.registry.JoinRoom(ctx, c.sess, int64(p.RoomID), int64(p.DeckID))

	case eventDrawCards:
		var p roomActionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.E(game.CodeBadRequest)
		}
		return h.registry.DrawCards(c.sess, int64(p.RoomID))

	case eventPlayCard:
		var p playCardPayload
		if err := json.Unmarshal(env.Data, &p); err != nil || p.CardIndex < 0 {
			return game.E(game.CodeBadRequest)
		}
		return h.registry.PlayCard(c.sess, int64(p.RoomID), int(p.CardIndex))

	case eventAttack:
		var p roomActionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.E(game.CodeBadRequest)
		}
		return h.registry.Attack(ctx, c.sess, int64(p.RoomID))

	case eventEndTurn:
		var p roomActionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.E(game.CodeBadRequest)
		}
		return h.registry.EndTurn(c.sess, int64(p.RoomID))

	default:
		logging.GetLogger().Debug("unknown event", zap.String("event", env.Event))
		return game.E(game.CodeBadRequest)
	}
}

func (h *Hub) sendError(c *Client, offendingEvent string, code game.Code) {
	h.SendTo(c.sess.ID, game.EventError, game.ErrorPayload{
		Event:   offendingEvent,
		Message: string(code),
	})
}
