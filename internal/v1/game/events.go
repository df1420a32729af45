package game

// Outbound event names. The session layer serializes these onto the
// wire; the registry and match engine decide when they fire.
const (
	EventRoomsList        = "roomsList"
	EventRoomCreated      = "roomCreated"
	EventRoomsListUpdated = "roomsListUpdated"
	EventGameStarted      = "gameStarted"
	EventGameStateUpdated = "gameStateUpdated"
	EventGameEnded        = "gameEnded"
	EventError            = "error"
)

// Emitter delivers events to sessions. The session hub implements it;
// registry tests substitute a recording fake.
type Emitter interface {
	// SendTo delivers an event to a single session. Delivery is best
	// effort; a dead session must not fail the mutation that emitted.
	SendTo(sessionID string, event string, payload any)
	// Broadcast delivers an event to every authenticated session.
	Broadcast(event string, payload any)
}

// ErrorPayload is the payload of the error event.
type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// MatchParticipant describes one side of a started match.
type MatchParticipant struct {
	Role   Role  `json:"role"`
	UserID int64 `json:"userId"`
	DeckID int64 `json:"deckId"`
}

// GameStartedPayload is sent to each participant when a room fills up.
type GameStartedPayload struct {
	RoomID   int64            `json:"roomId"`
	You      MatchParticipant `json:"you"`
	Opponent MatchParticipant `json:"opponent"`
}

// GameEndedPayload is sent to both participants when a score reaches the
// winning threshold.
type GameEndedPayload struct {
	RoomID          int64  `json:"roomId"`
	WinnerSessionID string `json:"winnerSessionId"`
	HostScore       int    `json:"hostScore"`
	GuestScore      int    `json:"guestScore"`
}
