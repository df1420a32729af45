package game

import "math/rand"

// Match is the server-authoritative state of one in-game room. All
// mutations go through the action methods below; the registry serializes
// calls, so Match itself carries no lock.
type Match struct {
	RoomID int64

	host  playerState
	guest playerState

	currentSessionID string
	finished         bool
	winnerSessionID  string
}

// NewMatch snapshots both decks, shuffles them and hands the first turn
// to the host. rng drives the Fisher-Yates shuffle; pass a seeded source
// for deterministic matches.
func NewMatch(roomID int64, host, guest MatchSeat, rng *rand.Rand) *Match {
	m := &Match{
		RoomID: roomID,
		host: playerState{
			SessionID: host.SessionID,
			UserID:    host.UserID,
			DeckID:    host.DeckID,
			Deck:      shuffled(host.Cards, rng),
		},
		guest: playerState{
			SessionID: guest.SessionID,
			UserID:    guest.UserID,
			DeckID:    guest.DeckID,
			Deck:      shuffled(guest.Cards, rng),
		},
		currentSessionID: host.SessionID,
	}
	return m
}

// MatchSeat carries one participant's identity and loaded deck into NewMatch.
type MatchSeat struct {
	SessionID string
	UserID    int64
	DeckID    int64
	Cards     []Card
}

// shuffled returns a uniformly permuted copy of cards.
func shuffled(cards []Card, rng *rand.Rand) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// AttackResult reports what an attack did.
type AttackResult struct {
	Damage   int
	Knockout bool
	// WinnerSessionID is non-empty when the attack ended the match.
	WinnerSessionID string
}

// HostSessionID returns the session handle of the host seat.
func (m *Match) HostSessionID() string { return m.host.SessionID }

// GuestSessionID returns the session handle of the guest seat.
func (m *Match) GuestSessionID() string { return m.guest.SessionID }

// Finished reports whether a score has reached WinningScore.
func (m *Match) Finished() bool { return m.finished }

// WinnerSessionID returns the winner's session handle once finished.
func (m *Match) WinnerSessionID() string { return m.winnerSessionID }

// Scores returns the host and guest knockout counts.
func (m *Match) Scores() (host, guest int) { return m.host.Score, m.guest.Score }

// RoleOf maps a session handle to its seat, or "" for strangers.
func (m *Match) RoleOf(sessionID string) Role {
	switch sessionID {
	case m.host.SessionID:
		return RoleHost
	case m.guest.SessionID:
		return RoleGuest
	default:
		return ""
	}
}

// ViewFor projects the match state for the given session.
func (m *Match) ViewFor(sessionID string) *GameStateView {
	role := m.RoleOf(sessionID)
	if role == "" {
		return nil
	}
	return m.view(role)
}

func (m *Match) seatOf(sessionID string) (me, opponent *playerState) {
	if sessionID == m.host.SessionID {
		return &m.host, &m.guest
	}
	return &m.guest, &m.host
}

func (m *Match) requireTurn(sessionID string) error {
	if m.RoleOf(sessionID) == "" {
		return E(CodeBadRequest)
	}
	if sessionID != m.currentSessionID {
		return E(CodeNotYourTurn)
	}
	return nil
}

// DrawCards moves cards from the tail of the actor's deck into their
// hand until the hand holds HandLimit cards or the deck runs out. It is
// idempotent once either bound is hit and does not advance the turn.
func (m *Match) DrawCards(sessionID string) error {
	if err := m.requireTurn(sessionID); err != nil {
		return err
	}

	me, _ := m.seatOf(sessionID)
	for len(me.Hand) < HandLimit && len(me.Deck) > 0 {
		last := len(me.Deck) - 1
		me.Hand = append(me.Hand, me.Deck[last])
		me.Deck = me.Deck[:last]
	}
	return nil
}

// PlayCard moves the hand card at idx onto the board as the actor's
// active card. The rest of the hand keeps its order.
func (m *Match) PlayCard(sessionID string, idx int) error {
	if err := m.requireTurn(sessionID); err != nil {
		return err
	}

	me, _ := m.seatOf(sessionID)
	if idx < 0 || idx >= len(me.Hand) {
		return E(CodeInvalidIndex)
	}
	if me.Active != nil {
		return E(CodeAlreadyActive)
	}

	card := me.Hand[idx]
	me.Hand = append(me.Hand[:idx], me.Hand[idx+1:]...)
	me.Active = &card
	return nil
}

// Attack resolves the actor's active attacking the opponent's active.
// A knockout clears the defender and scores for the attacker. The turn
// passes to the opponent either way; reaching WinningScore finishes the
// match.
func (m *Match) Attack(sessionID string) (*AttackResult, error) {
	if err := m.requireTurn(sessionID); err != nil {
		return nil, err
	}

	me, opp := m.seatOf(sessionID)
	if me.Active == nil || opp.Active == nil {
		return nil, &Error{Code: CodeBadRequest, Message: "both players need an active card"}
	}

	res := &AttackResult{
		Damage: Damage(me.Active.Attack, me.Active.Type, opp.Active.Type),
	}

	opp.Active.HP -= res.Damage
	if opp.Active.HP <= 0 {
		opp.Active = nil
		me.Score++
		res.Knockout = true
	}

	// The attacker's turn ends even on a knockout.
	m.currentSessionID = opp.SessionID

	if me.Score >= WinningScore {
		m.finished = true
		m.winnerSessionID = me.SessionID
		res.WinnerSessionID = me.SessionID
	}

	return res, nil
}

// EndTurn hands the turn to the opponent with no other state change.
func (m *Match) EndTurn(sessionID string) error {
	if err := m.requireTurn(sessionID); err != nil {
		return err
	}

	_, opp := m.seatOf(sessionID)
	m.currentSessionID = opp.SessionID
	return nil
}
