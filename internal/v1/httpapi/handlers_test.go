package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clashdeck/backend/internal/v1/auth"
	"github.com/clashdeck/backend/internal/v1/middleware"
	"github.com/clashdeck/backend/internal/v1/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	router *gin.Engine
	store  *store.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.SeedCards(context.Background()))

	validator := auth.NewValidator("0123456789abcdef0123456789abcdef")
	r := gin.New()
	NewHandler(s, validator).Register(r, middleware.RequireAuth(validator), nil)

	return &testAPI{router: r, store: s}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// signup registers a user and returns their bearer token.
func (a *testAPI) signup(t *testing.T, username, email string) string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"username": username,
		"email":    email,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func cardIDs(start int64) []int64 {
	ids := make([]int64, 10)
	for i := range ids {
		ids[i] = start + int64(i)
	}
	return ids
}

func TestSignupThenSignin(t *testing.T) {
	api := newTestAPI(t)

	api.signup(t, "ash", "ash@example.com")

	w := api.do(t, http.MethodPost, "/api/v1/auth/signin", "", gin.H{
		"email":    "Ash@Example.com", // case-insensitive
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ash", resp.User.Username)
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestSignup_Validation(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"missing username", gin.H{"email": "a@b.com", "password": "hunter2hunter2"}, http.StatusBadRequest},
		{"missing email", gin.H{"username": "a", "password": "hunter2hunter2"}, http.StatusBadRequest},
		{"short password", gin.H{"username": "a", "email": "a@b.com", "password": "short"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, http.MethodPost, "/api/v1/auth/signup", "", tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t, "ash", "ash@example.com")

	w := api.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{
		"username": "ash2",
		"email":    "ash@example.com",
		"password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"CONFLICT"}`, w.Body.String())
}

func TestSignin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	api := newTestAPI(t)
	api.signup(t, "ash", "ash@example.com")

	wrong := api.do(t, http.MethodPost, "/api/v1/auth/signin", "", gin.H{
		"email": "ash@example.com", "password": "wrong-password",
	})
	unknown := api.do(t, http.MethodPost, "/api/v1/auth/signin", "", gin.H{
		"email": "nobody@example.com", "password": "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestListCards_Public(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/cards", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Cards []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Cards)
	assert.Equal(t, "Emberling", resp.Cards[0].Name)
}

func TestDecks_RequireAuth(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/decks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"AUTH_MISSING"}`, w.Body.String())
}

func TestDeckCRUD(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "ash", "ash@example.com")

	// Create
	w := api.do(t, http.MethodPost, "/api/v1/decks", token, gin.H{
		"name": "Burn", "cardIds": cardIDs(1),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Deck store.Deck `json:"deck"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	deckID := created.Deck.ID
	require.Positive(t, deckID)

	// List
	w = api.do(t, http.MethodGet, "/api/v1/decks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Burn"`)

	// Update
	w = api.do(t, http.MethodPut, fmt.Sprintf("/api/v1/decks/%d", deckID), token, gin.H{
		"name": "Soak", "cardIds": cardIDs(6),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"Soak"`)

	// Get
	w = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/decks/%d", deckID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Deck store.Deck `json:"deck"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, cardIDs(6), got.Deck.CardIDs)

	// Delete
	w = api.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/decks/%d", deckID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, http.MethodGet, fmt.Sprintf("/api/v1/decks/%d", deckID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateDeck_Invalid(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "ash", "ash@example.com")

	t.Run("wrong size", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/decks", token, gin.H{
			"name": "Tiny", "cardIds": []int64{1, 2, 3},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"INVALID_DECK"}`, w.Body.String())
	})

	t.Run("unknown card id", func(t *testing.T) {
		ids := cardIDs(1)
		ids[9] = 9999
		w := api.do(t, http.MethodPost, "/api/v1/decks", token, gin.H{
			"name": "Ghost", "cardIds": ids,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"INVALID_DECK"}`, w.Body.String())
	})

	t.Run("empty name", func(t *testing.T) {
		w := api.do(t, http.MethodPost, "/api/v1/decks", token, gin.H{
			"name": "  ", "cardIds": cardIDs(1),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeck_OwnershipEnforced(t *testing.T) {
	api := newTestAPI(t)
	ashToken := api.signup(t, "ash", "ash@example.com")
	garyToken := api.signup(t, "gary", "gary@example.com")

	w := api.do(t, http.MethodPost, "/api/v1/decks", ashToken, gin.H{
		"name": "Burn", "cardIds": cardIDs(1),
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Deck store.Deck `json:"deck"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	path := fmt.Sprintf("/api/v1/decks/%d", created.Deck.ID)

	w = api.do(t, http.MethodGet, path, garyToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"FORBIDDEN"}`, w.Body.String())

	w = api.do(t, http.MethodDelete, path, garyToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Gary's deck list stays empty.
	w = api.do(t, http.MethodGet, "/api/v1/decks", garyToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"decks":[]}`, w.Body.String())
}

func TestGetDeck_BadIDParam(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup(t, "ash", "ash@example.com")

	w := api.do(t, http.MethodGet, "/api/v1/decks/not-a-number", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"BAD_REQUEST"}`, w.Body.String())
}
