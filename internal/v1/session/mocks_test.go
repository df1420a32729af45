package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/clashdeck/backend/internal/v1/game"
)

// mockConn is an in-memory wsConnection: tests feed frames into inbound
// and observe what the writePump produced on outbound.
type mockConn struct {
	inbound  chan []byte
	outbound chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound:  make(chan []byte, 16),
		outbound: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
}

func (m *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.inbound:
		return websocket.TextMessage, msg, nil
	case <-m.done:
		return 0, nil, errors.New("connection closed")
	}
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-m.done:
		return errors.New("connection closed")
	default:
	}
	if messageType != websocket.TextMessage {
		return nil
	}
	select {
	case m.outbound <- data:
	default:
	}
	return nil
}

func (m *mockConn) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	return nil
}

func (m *mockConn) SetWriteDeadline(t time.Time) error { return nil }

// emit sends an inbound frame as the client would.
func (m *mockConn) emit(t *testing.T, event string, data any) {
	t.Helper()

	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		require.NoError(t, err)
		raw = b
	}
	frame, err := json.Marshal(envelope{Event: event, Data: raw})
	require.NoError(t, err)

	select {
	case m.inbound <- frame:
	case <-time.After(time.Second):
		t.Fatal("inbound channel full")
	}
}

// next returns the next outbound envelope, failing after a timeout.
func (m *mockConn) next(t *testing.T) envelope {
	t.Helper()

	select {
	case frame := <-m.outbound:
		var env envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outbound event")
		return envelope{}
	}
}

// expect asserts the next outbound event's name and decodes its payload
// into out (when non-nil).
func (m *mockConn) expect(t *testing.T, event string, out any) envelope {
	t.Helper()

	env := m.next(t)
	require.Equal(t, event, env.Event, "payload: %s", string(env.Data))
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

// expectNone asserts no outbound event arrives within the window.
func (m *mockConn) expectNone(t *testing.T) {
	t.Helper()

	select {
	case frame := <-m.outbound:
		t.Fatalf("unexpected outbound frame: %s", string(frame))
	case <-time.After(100 * time.Millisecond):
	}
}

// fakeDeckRepo is an in-memory game.DeckRepository.
type fakeDeckRepo struct {
	mu    sync.Mutex
	decks map[int64]*game.DeckRecord
}

func newFakeDeckRepo() *fakeDeckRepo {
	return &fakeDeckRepo{decks: make(map[int64]*game.DeckRecord)}
}

func (f *fakeDeckRepo) add(rec *game.DeckRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decks[rec.DeckID] = rec
}

func (f *fakeDeckRepo) DeckWithCards(ctx context.Context, deckID int64) (*game.DeckRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.decks[deckID]
	if !ok {
		return nil, game.ErrDeckNotFound
	}
	return rec, nil
}

// uniformDeck builds a ten-card deck of one type so shuffle order never
// matters to the scenario.
func uniformDeck(idStart int64, cardType game.CardType, hp, attack int) []game.Card {
	cards := make([]game.Card, game.DeckSize)
	for i := range cards {
		cards[i] = game.Card{
			ID:     idStart + int64(i),
			Name:   string(cardType),
			HP:     hp,
			Attack: attack,
			Type:   cardType,
		}
	}
	return cards
}
