package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	movements []Movement
	lastQuery Filter
}

func (f *fakeRepo) List(_ context.Context, filter Filter) ([]Movement, int, error) {
	f.lastQuery = filter
	var out []Movement
	for _, mv := range f.movements {
		if filter.ProductID != "" && mv.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && mv.Type != filter.Type {
			continue
		}
		out = append(out, mv)
	}
	return out, len(out), nil
}

func TestListRejectsUnknownMovementType(t *testing.T) {
	svc := NewService(&fakeRepo{})

	_, _, err := svc.List(context.Background(), Filter{Type: MovementType("transfer")})
	require.ErrorIs(t, err, ErrInvalidMovementType)
}

func TestListFiltersByProductAndType(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := &fakeRepo{movements: []Movement{
		{ID: "m1", ProductID: "p1", Type: TypeSale, Quantity: 2, PreviousStock: 10, NewStock: 8, CreatedAt: now},
		{ID: "m2", ProductID: "p1", Type: TypeRestock, Quantity: 48, PreviousStock: 8, NewStock: 56, CreatedAt: now},
		{ID: "m3", ProductID: "p2", Type: TypeSale, Quantity: 1, PreviousStock: 5, NewStock: 4, CreatedAt: now},
	}}
	svc := NewService(repo)

	movements, total, err := svc.List(context.Background(), Filter{ProductID: "p1", Type: TypeSale})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, movements, 1)
	require.Equal(t, "m1", movements[0].ID)
	require.Equal(t, Filter{ProductID: "p1", Type: TypeSale}, repo.lastQuery)
}

func TestMovementTypeValid(t *testing.T) {
	require.True(t, TypeSale.Valid())
	require.True(t, TypeAdjustment.Valid())
	require.True(t, TypeRestock.Valid())
	require.False(t, MovementType("").Valid())
	require.False(t, MovementType("transfer").Valid())
}
