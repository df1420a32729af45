package game

import (
	"context"
	"sync"
)

// fakeDeckRepo is an in-memory DeckRepository.
type fakeDeckRepo struct {
	decks map[int64]*DeckRecord
	err   error
}

func newFakeDeckRepo() *fakeDeckRepo {
	return &fakeDeckRepo{decks: make(map[int64]*DeckRecord)}
}

func (f *fakeDeckRepo) DeckWithCards(_ context.Context, deckID int64) (*DeckRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.decks[deckID]
	if !ok {
		return nil, ErrDeckNotFound
	}
	return rec, nil
}

func (f *fakeDeckRepo) add(deckID, ownerID int64, ownerUsername string, cards []Card) {
	f.decks[deckID] = &DeckRecord{
		DeckID:        deckID,
		OwnerID:       ownerID,
		OwnerUsername: ownerUsername,
		Cards:         cards,
	}
}

// recordedEvent is one captured emission.
type recordedEvent struct {
	SessionID string // empty for broadcasts
	Event     string
	Payload   any
}

// recordingEmitter captures every emission for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *recordingEmitter) SendTo(sessionID, event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{SessionID: sessionID, Event: event, Payload: payload})
}

func (e *recordingEmitter) Broadcast(event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{Event: event, Payload: payload})
}

func (e *recordingEmitter) all() []recordedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]recordedEvent, len(e.events))
	copy(out, e.events)
	return out
}

func (e *recordingEmitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = nil
}

// byName filters captured events by name.
func (e *recordingEmitter) byName(name string) []recordedEvent {
	var out []recordedEvent
	for _, ev := range e.all() {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

// lastTo returns the most recent event of the given name sent directly
// to sessionID, or nil.
func (e *recordingEmitter) lastTo(sessionID, name string) *recordedEvent {
	events := e.all()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].SessionID == sessionID && events[i].Event == name {
			return &events[i]
		}
	}
	return nil
}

// testDeck builds a 10-card deck of uniform cards, ids offset for
// distinguishability.
func testDeck(idOffset int64, cardType CardType) []Card {
	cards := make([]Card, DeckSize)
	for i := range cards {
		cards[i] = Card{
			ID:     idOffset + int64(i),
			Name:   "Test Card",
			HP:     60,
			Attack: 20,
			Type:   cardType,
		}
	}
	return cards
}
