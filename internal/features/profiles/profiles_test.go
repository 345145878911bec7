package profiles

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/printvend/internal/common"
)

type stubStore struct {
	profiles map[string]*Profile
	err      error
}

func (s *stubStore) Upsert(_ context.Context, id, email, fullName string) (*Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[id]
	if !ok {
		p = &Profile{ID: id, Role: RoleUser, CreatedAt: time.Now()}
		s.profiles[id] = p
	}
	if email != "" {
		p.Email = email
	}
	if fullName != "" {
		p.FullName = fullName
	}
	return p, nil
}

func (s *stubStore) Get(_ context.Context, id string) (*Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, common.ErrProfileNotFound
	}
	return p, nil
}

type stubWallets struct{ opened []string }

func (w *stubWallets) EnsureAccount(_ context.Context, userID string) error {
	w.opened = append(w.opened, userID)
	return nil
}

func TestEnsure(t *testing.T) {
	store := &stubStore{profiles: map[string]*Profile{}}
	wallets := &stubWallets{}
	svc := NewService(store, wallets)
	ctx := context.Background()

	p, err := svc.Ensure(ctx, " u1 ", "a@campus.edu", "Asha")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, RoleUser, p.Role)
	assert.Equal(t, []string{"u1"}, wallets.opened)

	p, err = svc.Ensure(ctx, "u1", "", "Asha K")
	require.NoError(t, err)
	assert.Equal(t, "a@campus.edu", p.Email)
	assert.Equal(t, "Asha K", p.FullName)

	_, err = svc.Ensure(ctx, "  ", "", "")
	assert.ErrorIs(t, err, common.ErrInvalidProfile)
}

func TestRoles(t *testing.T) {
	store := &stubStore{profiles: map[string]*Profile{
		"vip":   {ID: "vip", Role: RoleVIP},
		"admin": {ID: "admin", Role: RoleAdmin},
	}}
	svc := NewService(store, &stubWallets{})
	ctx := context.Background()

	vip, err := svc.IsVIP(ctx, "vip")
	require.NoError(t, err)
	assert.True(t, vip)

	vip, err = svc.IsVIP(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, vip)

	role, err := svc.RoleOf(ctx, "stranger")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)

	store.err = errors.New("db down")
	_, err = svc.IsVIP(ctx, "vip")
	assert.Error(t, err)
}

func TestHandlers(t *testing.T) {
	store := &stubStore{profiles: map[string]*Profile{}}
	h := NewHandler(NewService(store, &stubWallets{}))
	r := chi.NewRouter()
	r.Post("/profile", h.Ensure)
	r.Get("/profile/{uid}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/profile",
		strings.NewReader(`{"userId":"u1","email":"a@campus.edu","fullName":"Asha"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"USER"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/u1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@campus.edu"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/u2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
