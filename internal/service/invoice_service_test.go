package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/qrbill"
	"github.com/andy/invoicer/internal/repository"
	"github.com/andy/invoicer/internal/reqctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoiceFixture struct {
	svc      *invoiceService
	invoices *mockInvoiceRepo
	clients  *mockClientRepo
	renderer *mockRenderer
	now      time.Time
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()
	actor := domain.NewUser("Ann", "Admin", "ann@example.com", "hash")
	actor.ID = 1

	f := &invoiceFixture{
		invoices: newMockInvoiceRepo(),
		clients:  newMockClientRepo(1, 2),
		renderer: &mockRenderer{},
		now:      time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewInvoiceService(
		f.invoices,
		f.clients,
		newMockServiceRepo(1, 2),
		&mockSettingRepo{},
		newMockUserRepo(actor),
		f.renderer,
		nil,
		InvoiceOptions{NumberWidth: 6, DefaultDueDays: 30},
	).(*invoiceService)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func asUser(id int64) context.Context {
	return reqctx.With(context.Background(), id)
}

func TestCreateAndGenerateInvoice(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := asUser(1)

	inv, err := f.svc.Create(ctx, InvoiceInput{
		Name:     "Test",
		ClientID: 1,
		Lines:    []InvoiceLineInput{{ServiceID: 1, Quantity: 2, Amount: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, "000001", inv.Number)
	assert.Equal(t, domain.InvoiceStateCreated, inv.State)
	assert.InDelta(t, 200.0, inv.Total(), 0.001)
	require.NoError(t, qrbill.ValidateReference(inv.Reference))
	assert.True(t, strings.HasSuffix(inv.Reference[:26], "000001"))

	result, err := f.svc.Generate(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStateGenerated, result.Invoice.State)
	assert.InDelta(t, 200.0, result.Total, 0.001)
	require.True(t, result.Invoice.DueAt.Valid)
	assert.Equal(t, f.now.AddDate(0, 0, 30), result.Invoice.DueAt.Time)
	assert.Equal(t, "/tmp/000001.pdf", result.Path)
	require.Len(t, f.renderer.rendered, 1)

	codes := f.invoices.codes(inv.ID)
	assert.Equal(t, []domain.InvoiceState{domain.InvoiceStateCreated, domain.InvoiceStateGenerated}, codes)

	logs, err := f.svc.Logs(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann Admin generated invoice 000001", logs[1].Details)
}

func TestGenerateAfterSentKeepsState(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := asUser(1)

	inv, err := f.svc.Create(ctx, InvoiceInput{Name: "Test", ClientID: 1})
	require.NoError(t, err)
	_, err = f.svc.ChangeState(ctx, inv.ID, domain.InvoiceStateSent)
	require.NoError(t, err)

	due := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	stored, err := f.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	stored.DueAt.SetValid(due)
	require.NoError(t, f.invoices.Update(ctx, stored))
	updates := len(f.invoices.updated)

	result, err := f.svc.Generate(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStateSent, result.Invoice.State)
	assert.Equal(t, due, result.Invoice.DueAt.Time, "existing due date must be kept")
	assert.Len(t, f.invoices.updated, updates, "nothing changed, nothing persisted")

	assert.Equal(t, []domain.InvoiceState{
		domain.InvoiceStateCreated,
		domain.InvoiceStateSent,
		domain.InvoiceStateGenerated,
	}, f.invoices.codes(inv.ID))
}

func TestChangeStateIsPermissive(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := asUser(1)

	inv, err := f.svc.Create(ctx, InvoiceInput{Name: "Test", ClientID: 1})
	require.NoError(t, err)

	for _, state := range []domain.InvoiceState{domain.InvoiceStatePaid, domain.InvoiceStateCreated, domain.InvoiceStateUnpaid} {
		got, err := f.svc.ChangeState(ctx, inv.ID, state)
		require.NoError(t, err)
		assert.Equal(t, state, got.State)
	}

	_, err = f.svc.ChangeState(ctx, inv.ID, "DRAFT")
	assert.ErrorIs(t, err, domain.ErrInvalidInvoiceState)
	assert.Len(t, f.invoices.codes(inv.ID), 4)
}

func TestUpdateKeepsStateAndReplacesLines(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := asUser(1)

	inv, err := f.svc.Create(ctx, InvoiceInput{
		Name:     "Test",
		ClientID: 1,
		Lines:    []InvoiceLineInput{{ServiceID: 1, Quantity: 1, Amount: 10}},
	})
	require.NoError(t, err)
	_, err = f.svc.ChangeState(ctx, inv.ID, domain.InvoiceStateSent)
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, inv.ID, InvoiceInput{
		Name:     "Renamed",
		ClientID: 2,
		Lines:    []InvoiceLineInput{{ServiceID: 2, Quantity: 3, Amount: 50}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStateSent, updated.State)
	assert.Equal(t, "Renamed", updated.Name)
	assert.InDelta(t, 150.0, updated.Total(), 0.001)

	reloaded, err := f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, reloaded.Total(), 0.001, "archived lines no longer count")
	assert.Len(t, reloaded.Lines, 2)
	assert.Equal(t, domain.InvoiceStateUpdated, f.invoices.codes(inv.ID)[2])
}

func TestCreateInvoiceValidation(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := asUser(1)

	_, err := f.svc.Create(ctx, InvoiceInput{Name: "Test", ClientID: 99})
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)

	_, err = f.svc.Create(ctx, InvoiceInput{Name: "Test", ClientID: 1, Lines: []InvoiceLineInput{{ServiceID: 42, Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)

	_, err = f.svc.Create(ctx, InvoiceInput{Name: "", ClientID: 1})
	assert.ErrorIs(t, err, domain.BadParameterError)

	_, err = f.svc.Create(ctx, InvoiceInput{Name: "Test", ClientID: 1, Lines: []InvoiceLineInput{{ServiceID: 1, Quantity: 0, Amount: 5}}})
	assert.ErrorIs(t, err, domain.BadParameterError)

	assert.Empty(t, f.invoices.invoices, "nothing persisted on validation errors")
}

func TestDeleteArchivesLinesThenInvoice(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := asUser(1)

	inv, err := f.svc.Create(ctx, InvoiceInput{
		Name:     "Test",
		ClientID: 1,
		Lines:    []InvoiceLineInput{{ServiceID: 1, Quantity: 1, Amount: 10}},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, inv.ID))

	lines, err := f.invoices.GetLines(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, lines[0].Archived)

	_, err = f.svc.Generate(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceArchived)

	assert.ErrorIs(t, f.svc.Delete(ctx, 99), domain.ErrInvoiceNotFound)
}

func TestLogDetailsWithoutActor(t *testing.T) {
	f := newInvoiceFixture(t)

	inv, err := f.svc.Create(asUser(reqctx.AnonymousUserID), InvoiceInput{Name: "Test", ClientID: 1})
	require.NoError(t, err)

	logs, err := f.invoices.GetLogs(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "system created invoice 000001", logs[0].Details)
}

type recordingExporter struct {
	year     int
	invoices []*domain.Invoice
}

func (e *recordingExporter) Export(w io.Writer, year int, invoices []*domain.Invoice) error {
	e.year = year
	e.invoices = invoices
	_, err := w.Write([]byte("ok"))
	return err
}

func TestExportSelectsYear(t *testing.T) {
	f := newInvoiceFixture(t)
	exporter := &recordingExporter{}
	f.svc.exporter = exporter
	ctx := asUser(1)

	inv, err := f.svc.Create(ctx, InvoiceInput{Name: "Test", ClientID: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.Export(ctx, inv.CreatedAt.Year(), &buf))
	assert.Equal(t, "ok", buf.String())
	assert.Len(t, exporter.invoices, 1)

	require.NoError(t, f.svc.Export(ctx, 1999, &buf))
	assert.Empty(t, exporter.invoices)

	_, err = f.svc.List(ctx, repository.InvoiceFilter{})
	require.NoError(t, err)
}
