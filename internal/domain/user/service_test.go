package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/b2b-order/pkg/errors"
)

type memRepo struct {
	byExternal map[string]*User
	nextID     uint
}

func (r *memRepo) FindOrCreateByExternalID(ctx context.Context, u *User) (*User, error) {
	if existing, ok := r.byExternal[u.ExternalID]; ok {
		return existing, nil
	}
	r.nextID++
	u.ID = r.nextID
	r.byExternal[u.ExternalID] = u
	return u, nil
}

func (r *memRepo) FindByID(ctx context.Context, id uint) (*User, error) {
	for _, u := range r.byExternal {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func TestResolve_CreatesOnce(t *testing.T) {
	svc := NewService(&memRepo{byExternal: map[string]*User{}})

	first, err := svc.Resolve(context.Background(), "ext-1", "buyer@example.com", "采购部", "")
	require.NoError(t, err)
	assert.Equal(t, RoleBuyer, first.Role)

	second, err := svc.Resolve(context.Background(), "ext-1", "buyer@example.com", "采购部", RoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolve_Validation(t *testing.T) {
	svc := NewService(&memRepo{byExternal: map[string]*User{}})

	_, err := svc.Resolve(context.Background(), "", "", "", RoleBuyer)
	assert.ErrorIs(t, err, apperrors.ErrAuthenticationInvalid)

	_, err = svc.Resolve(context.Background(), "ext-2", "not-an-email", "", RoleBuyer)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
}
