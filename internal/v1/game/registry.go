package game

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clashdeck/backend/internal/v1/logging"
	"github.com/clashdeck/backend/internal/v1/metrics"
)

// Session is the authenticated identity attached to one live channel
// connection. The ID is server-assigned at handshake and stable for the
// connection's lifetime; sessions never outlive their channel.
type Session struct {
	ID     string
	UserID int64
	Email  string
}

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomInGame  RoomStatus = "in-game"
)

// Room is a matchmaking slot holding one or two participants.
type Room struct {
	ID     int64
	Status RoomStatus

	HostSessionID string
	HostUserID    int64
	HostUsername  string
	HostDeckID    int64

	GuestSessionID string
	GuestUserID    int64
	GuestUsername  string
	GuestDeckID    int64

	CreatedAt time.Time
}

// PublicRoomView is the waiting-list projection of a room. It never
// exposes session ids or deck contents.
type PublicRoomView struct {
	ID           int64  `json:"id"`
	HostUsername string `json:"hostUsername"`
	HostUserID   int64  `json:"hostUserId"`
	CreatedAt    string `json:"createdAt"`
}

func (rm *Room) publicView() PublicRoomView {
	return PublicRoomView{
		ID:           rm.ID,
		HostUsername: rm.HostUsername,
		HostUserID:   rm.HostUserID,
		CreatedAt:    rm.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Registry is the process-wide mutable state of the matchmaking service:
// the room table, the match table and the monotonic room id counter. It
// is a value passed by reference to handlers rather than package state,
// which keeps it testable and lets every mutation serialize on one lock.
type Registry struct {
	mu      sync.Mutex
	rooms   map[int64]*Room
	matches map[int64]*Match
	nextID  int64

	loader  *DeckLoader
	emitter Emitter
	rng     *rand.Rand
	now     func() time.Time
}

// Option customizes a Registry, mainly for deterministic tests.
type Option func(*Registry)

// WithRand injects the shuffle source.
func WithRand(rng *rand.Rand) Option {
	return func(r *Registry) { r.rng = rng }
}

// WithClock injects the room timestamp clock.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry backed by the given deck loader
// and emitter.
func NewRegistry(loader *DeckLoader, emitter Emitter, opts ...Option) *Registry {
	r := &Registry{
		rooms:   make(map[int64]*Room),
		matches: make(map[int64]*Match),
		loader:  loader,
		emitter: emitter,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom loads the host's deck, allocates a room id and stores the
// room in the waiting state. The host receives roomCreated; everyone
// receives the refreshed waiting list.
func (r *Registry) CreateRoom(ctx context.Context, sess Session, deckID int64) error {
	// Deck load may suspend; no lock held across it.
	rec, err := r.loader.Load(ctx, deckID, sess.UserID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.nextID++
	room := &Room{
		ID:            r.nextID,
		Status:        RoomWaiting,
		HostSessionID: sess.ID,
		HostUserID:    sess.UserID,
		HostUsername:  rec.OwnerUsername,
		HostDeckID:    deckID,
		CreatedAt:     r.now(),
	}
	r.rooms[room.ID] = room
	view := room.publicView()
	list := r.listWaitingLocked()
	r.mu.Unlock()

	metrics.WaitingRooms.Inc()
	logging.Info(ctx, "room created",
		zap.Int64("roomId", room.ID),
		zap.Int64("hostUserId", sess.UserID))

	r.emitter.SendTo(sess.ID, EventRoomCreated, view)
	r.emitter.Broadcast(EventRoomsListUpdated, list)
	return nil
}

// ListWaiting returns a consistent snapshot of all waiting rooms,
// ordered by room id ascending so clients see a stable list.
func (r *Registry) ListWaiting() []PublicRoomView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listWaitingLocked()
}

func (r *Registry) listWaitingLocked() []PublicRoomView {
	list := make([]PublicRoomView, 0, len(r.rooms))
	for _, room := range r.rooms {
		if room.Status == RoomWaiting {
			list = append(list, room.publicView())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// JoinRoom seats sess as the guest of roomID, loads both decks,
// promotes the room to in-game and starts the match. Preconditions are
// re-checked after the deck loads because the room may have changed
// while the loads were in flight.
func (r *Registry) JoinRoom(ctx context.Context, sess Session, roomID, deckID int64) error {
	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return E(CodeNotFound)
	}
	if room.Status != RoomWaiting || room.GuestSessionID != "" {
		r.mu.Unlock()
		return E(CodeRoomFull)
	}
	if room.HostUserID == sess.UserID {
		r.mu.Unlock()
		return E(CodeSelfJoin)
	}
	hostSessionID := room.HostSessionID
	hostUserID := room.HostUserID
	hostDeckID := room.HostDeckID
	r.mu.Unlock()

	// The host's cards were not kept at creation; the same loader call
	// recovers them alongside the guest's.
	guestRec, err := r.loader.Load(ctx, deckID, sess.UserID)
	if err != nil {
		return err
	}
	hostRec, err := r.loader.Load(ctx, hostDeckID, hostUserID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	room, ok = r.rooms[roomID]
	if !ok || room.HostSessionID != hostSessionID {
		r.mu.Unlock()
		return E(CodeNotFound)
	}
	if room.Status != RoomWaiting || room.GuestSessionID != "" {
		r.mu.Unlock()
		return E(CodeRoomFull)
	}

	room.Status = RoomInGame
	room.GuestSessionID = sess.ID
	room.GuestUserID = sess.UserID
	room.GuestUsername = guestRec.OwnerUsername
	room.GuestDeckID = deckID

	match := NewMatch(roomID,
		MatchSeat{SessionID: hostSessionID, UserID: hostUserID, DeckID: hostDeckID, Cards: hostRec.Cards},
		MatchSeat{SessionID: sess.ID, UserID: sess.UserID, DeckID: deckID, Cards: guestRec.Cards},
		r.rng,
	)
	r.matches[roomID] = match
	list := r.listWaitingLocked()
	r.mu.Unlock()

	metrics.WaitingRooms.Dec()
	metrics.ActiveMatches.Inc()
	logging.Info(ctx, "match started",
		zap.Int64("roomId", roomID),
		zap.Int64("hostUserId", hostUserID),
		zap.Int64("guestUserId", sess.UserID))

	hostSide := MatchParticipant{Role: RoleHost, UserID: hostUserID, DeckID: hostDeckID}
	guestSide := MatchParticipant{Role: RoleGuest, UserID: sess.UserID, DeckID: deckID}
	r.emitter.SendTo(hostSessionID, EventGameStarted, GameStartedPayload{RoomID: roomID, You: hostSide, Opponent: guestSide})
	r.emitter.SendTo(sess.ID, EventGameStarted, GameStartedPayload{RoomID: roomID, You: guestSide, Opponent: hostSide})
	r.emitter.Broadcast(EventRoomsListUpdated, list)
	return nil
}

// DrawCards refills the actor's hand and pushes fresh views to both
// players.
func (r *Registry) DrawCards(sess Session, roomID int64) error {
	return r.withMatch(roomID, func(m *Match) error {
		return m.DrawCards(sess.ID)
	})
}

// PlayCard puts the hand card at idx on the actor's board and pushes
// fresh views to both players.
func (r *Registry) PlayCard(sess Session, roomID int64, idx int) error {
	return r.withMatch(roomID, func(m *Match) error {
		return m.PlayCard(sess.ID, idx)
	})
}

// EndTurn flips the turn and pushes fresh views to both players.
func (r *Registry) EndTurn(sess Session, roomID int64) error {
	return r.withMatch(roomID, func(m *Match) error {
		return m.EndTurn(sess.ID)
	})
}

// withMatch runs fn against the room's match under the registry lock,
// then emits gameStateUpdated to both participants on success.
func (r *Registry) withMatch(roomID int64, fn func(m *Match) error) error {
	r.mu.Lock()
	m, ok := r.matches[roomID]
	if !ok {
		r.mu.Unlock()
		return E(CodeNotFound)
	}
	if err := fn(m); err != nil {
		r.mu.Unlock()
		return err
	}
	hostID, guestID := m.HostSessionID(), m.GuestSessionID()
	hostView, guestView := m.view(RoleHost), m.view(RoleGuest)
	r.mu.Unlock()

	r.emitter.SendTo(hostID, EventGameStateUpdated, hostView)
	r.emitter.SendTo(guestID, EventGameStateUpdated, guestView)
	return nil
}

// Attack resolves an attack. A match that reaches the winning score is
// torn down and both players receive gameEnded; otherwise both receive
// the updated views. The room record is intentionally left in place —
// it is no longer waiting, so it is invisible to listings, and the
// participants' disconnects will sweep it.
func (r *Registry) Attack(ctx context.Context, sess Session, roomID int64) error {
	r.mu.Lock()
	m, ok := r.matches[roomID]
	if !ok {
		r.mu.Unlock()
		return E(CodeNotFound)
	}

	res, err := m.Attack(sess.ID)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	hostID, guestID := m.HostSessionID(), m.GuestSessionID()

	if m.Finished() {
		hostScore, guestScore := m.Scores()
		winner := m.WinnerSessionID()
		delete(r.matches, roomID)
		r.mu.Unlock()

		metrics.ActiveMatches.Dec()
		winnerRole := string(RoleHost)
		if winner == guestID {
			winnerRole = string(RoleGuest)
		}
		metrics.MatchesCompleted.WithLabelValues(winnerRole).Inc()
		logging.Info(ctx, "match ended",
			zap.Int64("roomId", roomID),
			zap.String("winnerRole", winnerRole),
			zap.Int("hostScore", hostScore),
			zap.Int("guestScore", guestScore))

		ended := GameEndedPayload{
			RoomID:          roomID,
			WinnerSessionID: winner,
			HostScore:       hostScore,
			GuestScore:      guestScore,
		}
		r.emitter.SendTo(hostID, EventGameEnded, ended)
		r.emitter.SendTo(guestID, EventGameEnded, ended)
		return nil
	}

	hostView, guestView := m.view(RoleHost), m.view(RoleGuest)
	r.mu.Unlock()

	logging.GetLogger().Debug("attack resolved",
		zap.Int64("roomId", roomID),
		zap.Int("damage", res.Damage),
		zap.Bool("knockout", res.Knockout))
	r.emitter.SendTo(hostID, EventGameStateUpdated, hostView)
	r.emitter.SendTo(guestID, EventGameStateUpdated, guestView)
	return nil
}

// RemoveBySession deletes every room the session hosts or guests, along
// with any match state. Rooms and matches are gone before any emission
// happens, so a failed delivery can never leak state. A single
// roomsListUpdated broadcast follows if anything was removed.
func (r *Registry) RemoveBySession(ctx context.Context, sessionID string) {
	r.mu.Lock()
	removedRooms := 0
	removedWaiting := 0
	removedMatches := 0
	for id, room := range r.rooms {
		if room.HostSessionID != sessionID && room.GuestSessionID != sessionID {
			continue
		}
		delete(r.rooms, id)
		removedRooms++
		if room.Status == RoomWaiting {
			removedWaiting++
		}
		if _, ok := r.matches[id]; ok {
			delete(r.matches, id)
			removedMatches++
		}
	}
	changed := removedRooms > 0
	var list []PublicRoomView
	if changed {
		list = r.listWaitingLocked()
	}
	r.mu.Unlock()

	for i := 0; i < removedWaiting; i++ {
		metrics.WaitingRooms.Dec()
	}
	for i := 0; i < removedMatches; i++ {
		metrics.ActiveMatches.Dec()
	}

	if changed {
		logging.Info(ctx, "rooms removed on disconnect",
			zap.String("sessionId", sessionID),
			zap.Int("waiting", removedWaiting),
			zap.Int("matches", removedMatches))
		r.emitter.Broadcast(EventRoomsListUpdated, list)
	}
}
