package handler_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/tour-booking/internal/config"
	"github.com/iliyamo/tour-booking/internal/handler"
	"github.com/iliyamo/tour-booking/internal/model"
	"github.com/iliyamo/tour-booking/internal/repository"
	"github.com/iliyamo/tour-booking/internal/router"
	"github.com/iliyamo/tour-booking/internal/utils"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uint64]model.User
}

func (m *memUsers) Create(_ context.Context, email, fullName, password, role string, cost int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id := uint64(len(m.users) + 1)
	m.users[id] = model.User{ID: id, Email: email, FullName: fullName, PasswordHash: hash, Role: role, IsActive: true}
	return id, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

type memTokens struct {
	mu     sync.Mutex
	owners map[string]uint64
}

func (m *memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[hash] = userID
	return nil
}

func (m *memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.owners[hash]
	if !ok {
		return 0, repository.ErrTokenInvalid
	}
	return id, nil
}

func (m *memTokens) Rotate(_ context.Context, userID uint64, oldHash, newHash string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owners[oldHash] != userID {
		return repository.ErrTokenInvalid
	}
	delete(m.owners, oldHash)
	m.owners[newHash] = userID
	return nil
}

func (m *memTokens) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, hash)
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, id := range m.owners {
		if id == userID {
			delete(m.owners, h)
		}
	}
	return nil
}

func newAuthServer() (*echo.Echo, *memUsers, *memTokens) {
	users := &memUsers{users: map[uint64]model.User{}}
	tokens := &memTokens{owners: map[string]uint64{}}
	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}
	e := echo.New()
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, nil), jwtSecret)
	return e, users, tokens
}

func TestRegisterLoginMe(t *testing.T) {
	e, users, tokens := newAuthServer()
	creds := echo.Map{"email": " Ana@Example.com ", "full_name": "Ana", "password": "correct-horse"}

	rec := do(e, http.MethodPost, "/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	assert.Equal(t, "ana@example.com", user["email"])
	assert.Equal(t, model.RoleCustomer, user["role"])
	assert.Len(t, tokens.owners, 1)

	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/v1/auth/register", "", creds).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/auth/register", "",
		echo.Map{"email": "bo@example.com", "password": "short"}).Code)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/v1/auth/login", "",
		echo.Map{"email": "ana@example.com", "password": "wrong-horse"}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/v1/auth/login", "",
		echo.Map{"email": "nobody@example.com", "password": "correct-horse"}).Code)

	rec = do(e, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ana@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	access := decode(t, rec)["access"].(map[string]any)["token"].(string)

	rec = do(e, http.MethodGet, "/v1/me", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decode(t, rec)["full_name"])
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/v1/me", "", nil).Code)

	u := users.users[1]
	u.IsActive = false
	users.users[1] = u
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, "/v1/auth/login", "",
		echo.Map{"email": "ana@example.com", "password": "correct-horse"}).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	e, _, tokens := newAuthServer()
	rec := do(e, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "cy@example.com", "password": "long-enough"})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode(t, rec)["refresh"].(map[string]any)["token"].(string)

	rec = do(e, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": first})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode(t, rec)["refresh"].(map[string]any)["token"].(string)
	assert.NotEqual(t, first, second)
	assert.Len(t, tokens.owners, 1)

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": first}).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/auth/refresh", "", echo.Map{}).Code)

	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/v1/auth/logout", "", echo.Map{"refresh_token": second}).Code)
	assert.Empty(t, tokens.owners)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": second}).Code)
}

func TestLogoutWithBearerRevokesAllSessions(t *testing.T) {
	e, _, tokens := newAuthServer()
	rec := do(e, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "di@example.com", "password": "long-enough"})
	require.Equal(t, http.StatusCreated, rec.Code)
	access := decode(t, rec)["access"].(map[string]any)["token"].(string)
	require.Equal(t, http.StatusOK, do(e, http.MethodPost, "/v1/auth/login", "",
		echo.Map{"email": "di@example.com", "password": "long-enough"}).Code)
	require.Len(t, tokens.owners, 2)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/auth/logout", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/v1/auth/logout", "garbage", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/v1/auth/logout", access, nil).Code)
	assert.Empty(t, tokens.owners)
}
