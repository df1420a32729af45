// Package httpapi is the REST surface around the game: account signup
// and signin, the card catalog, and deck management. Gameplay itself
// happens over the socket; this package only prepares the data gameplay
// needs.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/clashdeck/backend/internal/v1/game"
	"github.com/clashdeck/backend/internal/v1/logging"
	"github.com/clashdeck/backend/internal/v1/middleware"
	"github.com/clashdeck/backend/internal/v1/store"
)

// TokenMinter issues signed session tokens at signin.
type TokenMinter interface {
	Mint(userID int64, email string) (string, error)
}

// Handler carries the dependencies of the REST endpoints.
type Handler struct {
	store  *store.Store
	minter TokenMinter
}

// NewHandler wires the REST surface over the store and token minter.
func NewHandler(s *store.Store, minter TokenMinter) *Handler {
	return &Handler{store: s, minter: minter}
}

// Register attaches all REST routes to the router. Deck routes sit
// behind the given auth middleware; auth and catalog routes are public.
// The rate limiter runs after auth on protected routes so authenticated
// callers draw from the per-user budget; nil disables limiting (tests).
func (h *Handler) Register(r gin.IRouter, requireAuth, rateLimit gin.HandlerFunc) {
	if rateLimit == nil {
		rateLimit = func(c *gin.Context) { c.Next() }
	}

	api := r.Group("/api/v1", rateLimit)
	api.POST("/auth/signup", h.signup)
	api.POST("/auth/signin", h.signin)
	api.GET("/cards", h.listCards)

	decks := r.Group("/api/v1/decks", requireAuth, rateLimit)
	decks.GET("", h.listDecks)
	decks.POST("", h.createDeck)
	decks.GET("/:id", h.getDeck)
	decks.PUT("/:id", h.updateDeck)
	decks.DELETE("/:id", h.deleteDeck)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || len(req.Password) < 8 {
		badRequest(c)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(c, err)
		return
	}

	user, err := h.store.CreateUser(c.Request.Context(), req.Username, req.Email, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		c.JSON(http.StatusConflict, gin.H{"error": string(game.CodeConflict)})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	token, err := h.minter.Mint(user.ID, user.Email)
	if err != nil {
		internalError(c, err)
		return
	}

	logging.Info(c.Request.Context(), "user signed up: "+logging.RedactEmail(user.Email))
	c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *Handler) signin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.store.UserByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		// Same response as a bad password so the endpoint does not
		// leak which emails have accounts.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "AUTH_INVALID"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "AUTH_INVALID"})
		return
	}

	token, err := h.minter.Mint(user.ID, user.Email)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) listCards(c *gin.Context) {
	cards, err := h.store.ListCards(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	if cards == nil {
		cards = []game.Card{}
	}
	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

type deckRequest struct {
	Name    string  `json:"name"`
	CardIDs []int64 `json:"cardIds"`
}

func (h *Handler) listDecks(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	decks, err := h.store.DecksByUser(c.Request.Context(), userID)
	if err != nil {
		internalError(c, err)
		return
	}
	if decks == nil {
		decks = []store.Deck{}
	}
	c.JSON(http.StatusOK, gin.H{"decks": decks})
}

func (h *Handler) createDeck(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req deckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(c)
		return
	}
	if len(req.CardIDs) != game.DeckSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(game.CodeInvalidDeck)})
		return
	}

	deck, err := h.store.CreateDeck(c.Request.Context(), userID, req.Name, req.CardIDs)
	if err != nil {
		// Unknown card ids trip the foreign key on deck_cards.
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			c.JSON(http.StatusBadRequest, gin.H{"error": string(game.CodeInvalidDeck)})
			return
		}
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"deck": deck})
}

func (h *Handler) getDeck(c *gin.Context) {
	deck, ok := h.ownedDeck(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"deck": deck})
}

func (h *Handler) updateDeck(c *gin.Context) {
	deck, ok := h.ownedDeck(c)
	if !ok {
		return
	}

	var req deckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		badRequest(c)
		return
	}
	if len(req.CardIDs) != game.DeckSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(game.CodeInvalidDeck)})
		return
	}

	if err := h.store.UpdateDeck(c.Request.Context(), deck.ID, req.Name, req.CardIDs); err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			c.JSON(http.StatusBadRequest, gin.H{"error": string(game.CodeInvalidDeck)})
			return
		}
		internalError(c, err)
		return
	}

	updated, err := h.store.DeckByID(c.Request.Context(), deck.ID)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deck": updated})
}

func (h *Handler) deleteDeck(c *gin.Context) {
	deck, ok := h.ownedDeck(c)
	if !ok {
		return
	}

	if err := h.store.DeleteDeck(c.Request.Context(), deck.ID); err != nil {
		internalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ownedDeck resolves the :id param to a deck the caller owns. On
// failure it writes the error response and returns false.
func (h *Handler) ownedDeck(c *gin.Context) (*store.Deck, bool) {
	userID, _ := middleware.UserID(c)

	deckID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c)
		return nil, false
	}

	deck, err := h.store.DeckByID(c.Request.Context(), deckID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": string(game.CodeNotFound)})
		return nil, false
	}
	if err != nil {
		internalError(c, err)
		return nil, false
	}

	if deck.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": string(game.CodeForbidden)})
		return nil, false
	}
	return deck, true
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": string(game.CodeBadRequest)})
}

func internalError(c *gin.Context, err error) {
	logging.Error(c.Request.Context(), "request failed: "+err.Error())
	c.JSON(http.StatusInternalServerError, gin.H{"error": string(game.CodeInternal)})
}
