package employee

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablehouse/eventdesk/internal/apperr"
	"github.com/tablehouse/eventdesk/internal/db/dbtest"
	"github.com/tablehouse/eventdesk/internal/giftcard"
	"github.com/tablehouse/eventdesk/internal/models"
	"github.com/tablehouse/eventdesk/internal/security"
)

func TestCreateGeneratesPasscode(t *testing.T) {
	service := NewService(dbtest.Open(t))
	row, err := service.Create(context.Background(), CreateRequest{Name: " Ana "})
	require.NoError(t, err)
	assert.Equal(t, "Ana", row.Name)
	assert.True(t, security.IsPasscode(row.Passcode))
	assert.Equal(t, models.EmployeeStatusActive, row.Status)
}

func TestCreateRejectsDuplicateAndMalformedPasscode(t *testing.T) {
	service := NewService(dbtest.Open(t))
	ctx := context.Background()
	_, err := service.Create(ctx, CreateRequest{Name: "Ana", Passcode: "1234"})
	require.NoError(t, err)

	_, err = service.Create(ctx, CreateRequest{Name: "Ben", Passcode: "1234"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = service.Create(ctx, CreateRequest{Name: "Ben", Passcode: "12x4"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = service.Create(ctx, CreateRequest{Name: ""})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAuthenticateOnlyActiveEmployees(t *testing.T) {
	service := NewService(dbtest.Open(t))
	ctx := context.Background()
	row, err := service.Create(ctx, CreateRequest{Name: "Ana", Passcode: "4321"})
	require.NoError(t, err)

	found, err := service.Authenticate(ctx, "4321")
	require.NoError(t, err)
	assert.Equal(t, row.ID, found.ID)

	_, err = service.Authenticate(ctx, "0000")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = service.Archive(ctx, row.ID)
	require.NoError(t, err)
	_, err = service.Authenticate(ctx, "4321")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestDeleteRequiresNoTransactions(t *testing.T) {
	conn := dbtest.Open(t)
	service := NewService(conn)
	engine := giftcard.NewEngine(conn)
	ctx := context.Background()

	idle, err := service.Create(ctx, CreateRequest{Name: "Idle"})
	require.NoError(t, err)
	busy, err := service.Create(ctx, CreateRequest{Name: "Busy"})
	require.NoError(t, err)

	card, err := engine.Issue(ctx, giftcard.IssueRequest{
		Channel:     models.GiftCardChannelAdmin,
		AmountCents: 5_000,
		OwnerName:   "Cy",
		OwnerEmail:  "cy@example.com",
	})
	require.NoError(t, err)
	_, err = engine.Deduct(ctx, card.Code, 1_000, giftcard.Actor{EmployeeID: &busy.ID, EmployeeName: busy.Name}, "")
	require.NoError(t, err)

	assert.ErrorIs(t, service.Delete(ctx, busy.ID), apperr.ErrInvalidState)
	require.NoError(t, service.Delete(ctx, idle.ID))
	assert.ErrorIs(t, service.Delete(ctx, idle.ID), apperr.ErrNotFound)

	rows, err := service.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Busy", rows[0].Name)
}

func TestUpdate(t *testing.T) {
	service := NewService(dbtest.Open(t))
	ctx := context.Background()
	row, err := service.Create(ctx, CreateRequest{Name: "Ana"})
	require.NoError(t, err)

	name := "Ana B"
	code := "7777"
	updated, err := service.Update(ctx, row.ID, UpdateRequest{Name: &name, Passcode: &code})
	require.NoError(t, err)
	assert.Equal(t, "Ana B", updated.Name)
	assert.Equal(t, "7777", updated.Passcode)

	bad := "retired"
	_, err = service.Update(ctx, row.ID, UpdateRequest{Status: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = service.Update(ctx, 999, UpdateRequest{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
