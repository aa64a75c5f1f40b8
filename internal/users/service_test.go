package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeRepo struct {
	users map[string]User
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[string]User{}}
}

func (f *fakeRepo) Create(_ context.Context, u User) error {
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetByUsername(_ context.Context, username string) (User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (f *fakeRepo) List(_ context.Context) ([]User, error) {
	out := make([]User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeRepo) SetActive(_ context.Context, id string, active bool) error {
	u, ok := f.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsActive = active
	f.users[id] = u
	return nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := f.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newTestService(repo *fakeRepo) *Service {
	clock := &fixedClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	return NewService(repo, nil, &seqIDs{}, clock)
}

func TestCreateHashesPasswordAndNormalizesUsername(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	u, err := svc.Create(context.Background(), CreateInput{
		Username: "  Caja1 ",
		FullName: " Caja Uno ",
		Password: "caja1234",
		Role:     RoleCashier,
	}, "admin-1")
	require.NoError(t, err)

	require.Equal(t, "caja1", u.Username)
	require.Equal(t, "Caja Uno", u.FullName)
	require.True(t, u.IsActive)
	require.NotEqual(t, "caja1234", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("caja1234")))
}

func TestCreateRejectsWeakPassword(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.Create(context.Background(), CreateInput{Username: "caja1", Password: "corta", Role: RoleCashier}, "admin-1")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, err := svc.Create(context.Background(), CreateInput{Username: "caja1", Password: "caja1234", Role: Role("supervisor")}, "admin-1")
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{Username: "caja1", Password: "caja1234", Role: RoleCashier}, "admin-1")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Username: "CAJA1", Password: "otra5678", Role: RoleCashier}, "admin-1")
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestDeactivateAndActivate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	u, err := svc.Create(context.Background(), CreateInput{Username: "caja1", Password: "caja1234", Role: RoleCashier}, "admin-1")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), u.ID, "admin-1"))
	got, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)

	require.NoError(t, svc.Activate(context.Background(), u.ID, "admin-1"))
	got, err = svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	require.True(t, got.IsActive)
}

func TestChangePasswordEnforcesMinimumLength(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	u, err := svc.Create(context.Background(), CreateInput{Username: "caja1", Password: "caja1234", Role: RoleCashier}, "admin-1")
	require.NoError(t, err)

	require.ErrorIs(t, svc.ChangePassword(context.Background(), u.ID, "corta", "admin-1"), ErrWeakPassword)

	require.NoError(t, svc.ChangePassword(context.Background(), u.ID, "nueva1234", "admin-1"))
	got, err := svc.Get(context.Background(), u.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("nueva1234")))
}
