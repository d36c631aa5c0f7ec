package domain

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceTotalIgnoresArchivedLines(t *testing.T) {
	inv := NewInvoice("Test", 1)
	inv.Lines = []*InvoiceLine{
		NewInvoiceLine(0, 1, 2, 100),
		NewInvoiceLine(0, 2, 1.5, 40),
		{ServiceID: 3, Quantity: 10, Amount: 10, Archived: true},
	}

	assert.InDelta(t, 260.0, inv.Total(), 0.0001)
	assert.Len(t, inv.ActiveLines(), 2)
}

func TestNewInvoiceStartsCreated(t *testing.T) {
	inv := NewInvoice("  Website  ", 4)

	assert.Equal(t, "Website", inv.Name)
	assert.Equal(t, InvoiceStateCreated, inv.State)
	assert.False(t, inv.DueAt.Valid)
	assert.Equal(t, inv.CreatedAt, inv.UpdatedAt)
}

func TestEnsureDueDate(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	inv := NewInvoice("Test", 1)

	require.True(t, inv.EnsureDueDate(now, 30))
	assert.Equal(t, time.Date(2024, 2, 14, 10, 30, 0, 0, time.UTC), inv.DueAt.Time)

	assert.False(t, inv.EnsureDueDate(now.AddDate(1, 0, 0), 30), "existing due date must be kept")
	assert.Equal(t, 2024, inv.DueAt.Time.Year())
}

func TestInvoiceValidate(t *testing.T) {
	inv := NewInvoice("Test", 1)
	inv.Number = "000001"
	require.NoError(t, inv.Validate())

	inv.State = "DRAFT"
	assert.ErrorIs(t, inv.Validate(), ErrInvalidInvoiceState)

	inv.State = InvoiceStateCreated
	inv.ClientID = 0
	assert.Error(t, inv.Validate())
}

func TestParseInvoiceState(t *testing.T) {
	state, err := ParseInvoiceState(" paid ")
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatePaid, state)

	_, err = ParseInvoiceState("DRAFT")
	assert.ErrorIs(t, err, ErrInvalidInvoiceState)
	assert.True(t, errors.Is(err, BadParameterError))

	assert.Len(t, InvoiceStates(), 7)
	for _, s := range InvoiceStates() {
		assert.True(t, CanTransition(InvoiceStatePaid, s))
	}
}

func TestInvoiceHistoryValues(t *testing.T) {
	inv := NewInvoice("Test", 7)
	inv.ID = 3

	values := inv.HistoryValues()
	assert.Equal(t, int64(3), values["id"])
	assert.Equal(t, InvoiceStateCreated, values["state"])
	require.NotNil(t, values["client"])
	assert.Equal(t, int64(7), *values["client"].(*int64))
	assert.Nil(t, values["dueAt"].(*time.Time))

	line := NewInvoiceLine(3, 0, 1, 1)
	assert.Nil(t, line.HistoryValues()["service"].(*int64))
}

func TestCloneDropsRelations(t *testing.T) {
	inv := NewInvoice("Test", 1)
	inv.Client = NewClient("ACME", "Jane", "Doe")
	inv.Lines = []*InvoiceLine{NewInvoiceLine(1, 1, 1, 1)}

	c := inv.Clone()
	c.Name = "Other"
	assert.Nil(t, c.Client)
	assert.Nil(t, c.Lines)
	assert.Equal(t, "Test", inv.Name)
}
