package game

import (
	"context"
	"errors"
	"fmt"
)

// DeckSize is the exact number of cards a playable deck holds.
const DeckSize = 10

// Card is the in-memory snapshot of a catalog card taken at match start.
// HP is mutable damage-tracking state; Attack and Type never change for
// the lifetime of a match.
type Card struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	HP     int      `json:"hp"`
	Attack int      `json:"attack"`
	Type   CardType `json:"type"`
}

// DeckRecord is what the external deck repository yields for a deck:
// ownership plus the ordered card list.
type DeckRecord struct {
	DeckID        int64
	OwnerID       int64
	OwnerUsername string
	Cards         []Card
}

// ErrDeckNotFound is returned by repositories when the deck id is unknown.
var ErrDeckNotFound = errors.New("deck not found")

// DeckRepository is the persistence interface the core consumes. The
// sqlite store implements it; tests use an in-memory fake.
type DeckRepository interface {
	DeckWithCards(ctx context.Context, deckID int64) (*DeckRecord, error)
}

// DeckLoader adapts the deck repository into game terms: it enforces
// ownership and deck size and hands back card snapshots in repository
// order.
type DeckLoader struct {
	repo DeckRepository
}

// NewDeckLoader wires a loader over the given repository.
func NewDeckLoader(repo DeckRepository) *DeckLoader {
	return &DeckLoader{repo: repo}
}

// Load fetches deckID on behalf of forUserID. It fails with NOT_FOUND if
// the deck does not exist, FORBIDDEN if it belongs to someone else, and
// INVALID_DECK if it does not hold exactly DeckSize cards.
func (l *DeckLoader) Load(ctx context.Context, deckID, forUserID int64) (*DeckRecord, error) {
	rec, err := l.repo.DeckWithCards(ctx, deckID)
	if err != nil {
		if errors.Is(err, ErrDeckNotFound) {
			return nil, E(CodeNotFound)
		}
		return nil, fmt.Errorf("deck repository: %w", err)
	}

	if rec.OwnerID != forUserID {
		return nil, E(CodeForbidden)
	}

	if len(rec.Cards) != DeckSize {
		return nil, E(CodeInvalidDeck)
	}

	// Copy so later HP mutations never alias repository-owned memory.
	out := &DeckRecord{
		DeckID:        rec.DeckID,
		OwnerID:       rec.OwnerID,
		OwnerUsername: rec.OwnerUsername,
		Cards:         make([]Card, len(rec.Cards)),
	}
	copy(out.Cards, rec.Cards)

	return out, nil
}
