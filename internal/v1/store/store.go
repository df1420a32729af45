// Package store is the relational persistence layer: users, the card
// catalog, decks and the deck-card join. It backs the HTTP surface and
// implements the deck repository the game core consumes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/clashdeck/backend/internal/v1/game"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint is violated
// (username or email already taken).
var ErrDuplicate = errors.New("already exists")

// cardCacheSize bounds the read-through cache over the card catalog.
const cardCacheSize = 256

// User is an account row. PasswordHash is the bcrypt digest, never the
// plaintext.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// Deck is a named 10-card selection owned by a user.
type Deck struct {
	ID      int64   `json:"id"`
	UserID  int64   `json:"userId"`
	Name    string  `json:"name"`
	CardIDs []int64 `json:"cardIds"`
}

// Store wraps the sqlite connection.
type Store struct {
	db *sql.DB

	// The card catalog is immutable at runtime, so cache hits never
	// serve stale data.
	cardCache *lru.Cache[int64, game.Card]
}

// Open opens (creating if necessary) the sqlite database at dbPath and
// runs the schema migration.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	cache, err := lru.New[int64, game.Card](cardCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, cardCache: cache}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cards (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			hp INTEGER NOT NULL,
			attack INTEGER NOT NULL,
			type TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS decks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS deck_cards (
			deck_id INTEGER NOT NULL,
			card_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (deck_id, position),
			FOREIGN KEY (deck_id) REFERENCES decks(id) ON DELETE CASCADE,
			FOREIGN KEY (card_id) REFERENCES cards(id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return nil
}

// --- Users ---

// CreateUser inserts a new account. Duplicate usernames or emails are
// reported as ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)`,
		username, email, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &User{ID: id, Username: username, Email: email, PasswordHash: passwordHash}, nil
}

// UserByEmail looks an account up by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// --- Card catalog ---

// ListCards returns the whole catalog, id ascending.
func (s *Store) ListCards(ctx context.Context) ([]game.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, hp, attack, type FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []game.Card
	for rows.Next() {
		var c game.Card
		if err := rows.Scan(&c.ID, &c.Name, &c.HP, &c.Attack, &c.Type); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// CardByID fetches one catalog card through the LRU cache.
func (s *Store) CardByID(ctx context.Context, id int64) (game.Card, error) {
	if c, ok := s.cardCache.Get(id); ok {
		return c, nil
	}

	var c game.Card
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, hp, attack, type FROM cards WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.HP, &c.Attack, &c.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Card{}, ErrNotFound
	}
	if err != nil {
		return game.Card{}, fmt.Errorf("failed to get card: %w", err)
	}

	s.cardCache.Add(id, c)
	return c, nil
}

// SeedCards inserts the starter catalog if the cards table is empty.
func (s *Store) SeedCards(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range starterCatalog {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cards (name, hp, attack, type) VALUES (?, ?, ?, ?)`,
			c.Name, c.HP, c.Attack, c.Type); err != nil {
			return fmt.Errorf("failed to seed cards: %w", err)
		}
	}

	return tx.Commit()
}

// --- Decks ---

// CreateDeck stores a deck and its ordered card list in one transaction.
func (s *Store) CreateDeck(ctx context.Context, userID int64, name string, cardIDs []int64) (*Deck, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO decks (user_id, name) VALUES (?, ?)`, userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create deck: %w", err)
	}
	deckID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if err := insertDeckCards(ctx, tx, deckID, cardIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &Deck{ID: deckID, UserID: userID, Name: name, CardIDs: cardIDs}, nil
}

func insertDeckCards(ctx context.Context, tx *sql.Tx, deckID int64, cardIDs []int64) error {
	for pos, cardID := range cardIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO deck_cards (deck_id, card_id, position) VALUES (?, ?, ?)`,
			deckID, cardID, pos); err != nil {
			return fmt.Errorf("failed to insert deck card: %w", err)
		}
	}
	return nil
}

// DeckByID fetches a deck header plus its card ids in position order.
func (s *Store) DeckByID(ctx context.Context, deckID int64) (*Deck, error) {
	d := &Deck{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name FROM decks WHERE id = ?`, deckID).
		Scan(&d.ID, &d.UserID, &d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT card_id FROM deck_cards WHERE deck_id = ? ORDER BY position`, deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var cardID int64
		if err := rows.Scan(&cardID); err != nil {
			return nil, err
		}
		d.CardIDs = append(d.CardIDs, cardID)
	}
	return d, rows.Err()
}

// DecksByUser lists a user's decks, id ascending.
func (s *Store) DecksByUser(ctx context.Context, userID int64) ([]Deck, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name FROM decks WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	var decks []Deck
	for rows.Next() {
		var d Deck
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name); err != nil {
			return nil, err
		}
		decks = append(decks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range decks {
		full, err := s.DeckByID(ctx, decks[i].ID)
		if err != nil {
			return nil, err
		}
		decks[i].CardIDs = full.CardIDs
	}
	return decks, nil
}

// UpdateDeck replaces a deck's name and card list.
func (s *Store) UpdateDeck(ctx context.Context, deckID int64, name string, cardIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `UPDATE decks SET name = ? WHERE id = ?`, name, deckID)
	if err != nil {
		return fmt.Errorf("failed to update deck: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM deck_cards WHERE deck_id = ?`, deckID); err != nil {
		return err
	}
	if err := insertDeckCards(ctx, tx, deckID, cardIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteDeck removes a deck; deck_cards rows cascade.
func (s *Store) DeleteDeck(ctx context.Context, deckID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, deckID)
	if err != nil {
		return fmt.Errorf("failed to delete deck: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeckWithCards implements game.DeckRepository: the deck's owner, the
// owner's username and the full cards in deck order.
func (s *Store) DeckWithCards(ctx context.Context, deckID int64) (*game.DeckRecord, error) {
	rec := &game.DeckRecord{DeckID: deckID}
	err := s.db.QueryRowContext(ctx,
		`SELECT d.user_id, u.username
		 FROM decks d JOIN users u ON u.id = d.user_id
		 WHERE d.id = ?`, deckID).
		Scan(&rec.OwnerID, &rec.OwnerUsername)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrDeckNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck owner: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.hp, c.attack, c.type
		 FROM deck_cards dc JOIN cards c ON c.id = dc.card_id
		 WHERE dc.deck_id = ?
		 ORDER BY dc.position`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deck cards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c game.Card
		if err := rows.Scan(&c.ID, &c.Name, &c.HP, &c.Attack, &c.Type); err != nil {
			return nil, err
		}
		rec.Cards = append(rec.Cards, c)
	}
	return rec, rows.Err()
}
