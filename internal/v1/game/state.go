package game

// Role identifies a fixed side of a match.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// HandLimit is the maximum number of cards a player may hold.
const HandLimit = 5

// WinningScore ends the match the instant either player reaches it.
const WinningScore = 3

// playerState is one side's half of a match: the face-down deck (drawn
// from the tail), the private hand, the public active card and the
// knockout score.
type playerState struct {
	SessionID string
	UserID    int64
	DeckID    int64
	Deck      []Card
	Hand      []Card
	Active    *Card
	Score     int
}

// GameStateView is the per-recipient projection of a match. It is built
// structurally from the recipient's side so the opponent's hand and deck
// contents cannot leak into an outbound message.
type GameStateView struct {
	RoomID                 int64  `json:"roomId"`
	Role                   Role   `json:"role"`
	MyHand                 []Card `json:"myHand"`
	MyActive               *Card  `json:"myActive"`
	MyDeckCount            int    `json:"myDeckCount"`
	MyScore                int    `json:"myScore"`
	OpponentActive         *Card  `json:"opponentActive"`
	OpponentDeckCount      int    `json:"opponentDeckCount"`
	OpponentScore          int    `json:"opponentScore"`
	CurrentPlayerSessionID string `json:"currentPlayerSessionId"`
}

// view projects the match for the player at role. Pure read; the caller
// holds whatever lock guards the match.
func (m *Match) view(role Role) *GameStateView {
	me, opp := m.host, m.guest
	if role == RoleGuest {
		me, opp = m.guest, m.host
	}

	hand := make([]Card, len(me.Hand))
	copy(hand, me.Hand)

	return &GameStateView{
		RoomID:                 m.RoomID,
		Role:                   role,
		MyHand:                 hand,
		MyActive:               copyCard(me.Active),
		MyDeckCount:            len(me.Deck),
		MyScore:                me.Score,
		OpponentActive:         copyCard(opp.Active),
		OpponentDeckCount:      len(opp.Deck),
		OpponentScore:          opp.Score,
		CurrentPlayerSessionID: m.currentSessionID,
	}
}

func copyCard(c *Card) *Card {
	if c == nil {
		return nil
	}
	dup := *c
	return &dup
}
