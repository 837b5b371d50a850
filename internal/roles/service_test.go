package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dfmorales/facturas-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	svc, err := NewService(NewRepository(openTestDB(t)))
	require.NoError(t, err)
	return svc
}

func TestCreateRoleNormalizesName(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.CreateRole(context.Background(), "  Admin ")
	require.NoError(t, err)
	require.Equal(t, "admin", created.Name)
	require.NotEqual(t, created.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestCreateRoleRejectsEmptyName(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateRole(context.Background(), "   ")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreateRoleDuplicateConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "auditor")
	require.NoError(t, err)

	_, err = svc.CreateRole(ctx, "AUDITOR")
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestListRolesSortedByName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"user", "admin", "auditor"} {
		_, err := svc.CreateRole(ctx, name)
		require.NoError(t, err)
	}

	listed, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	require.Equal(t, "admin", listed[0].Name)
	require.Equal(t, "auditor", listed[1].Name)
	require.Equal(t, "user", listed[2].Name)
}
