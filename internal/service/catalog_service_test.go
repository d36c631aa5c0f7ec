package service

import (
	"context"
	"testing"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/history"
	"github.com/andy/invoicer/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientService(t *testing.T) {
	ctx := context.Background()
	repo := newMockClientRepo()
	svc := NewClientService(repo)

	client, err := svc.Create(ctx, ClientInput{Name: " ACME ", Firstname: "Jane", Lastname: "Doe", Email: "jane@acme.test", City: " "})
	require.NoError(t, err)
	assert.Equal(t, "ACME", client.Name)
	assert.Equal(t, "jane@acme.test", client.Email.String)
	assert.False(t, client.City.Valid)

	edited, err := svc.Edit(ctx, client.ID, ClientInput{Name: "ACME SA", Firstname: "Jane", Lastname: "Doe"})
	require.NoError(t, err)
	assert.Equal(t, "ACME SA", edited.Name)
	assert.False(t, edited.Email.Valid)

	_, err = svc.Edit(ctx, 99, ClientInput{Name: "x", Firstname: "y", Lastname: "z"})
	assert.ErrorIs(t, err, domain.ErrEntityNotFound)

	_, err = svc.Create(ctx, ClientInput{Name: "No contact"})
	assert.ErrorIs(t, err, domain.BadParameterError)

	require.NoError(t, svc.Delete(ctx, client.ID))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCatalogService(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(newMockServiceRepo())

	service, err := svc.Create(ctx, ServiceInput{Name: "Hosting", Type: domain.ServiceTypeYearly})
	require.NoError(t, err)

	_, err = svc.Create(ctx, ServiceInput{Name: "Hosting", Type: "WEEKLY"})
	assert.ErrorIs(t, err, domain.BadParameterError)

	edited, err := svc.Edit(ctx, service.ID, ServiceInput{Name: "Hosting+", Type: domain.ServiceTypeMonthly})
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceTypeMonthly, edited.Type)

	assert.ErrorIs(t, svc.Delete(ctx, 0), domain.BadParameterError)
	require.NoError(t, svc.Delete(ctx, service.ID))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUserService(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepo()
	svc := NewUserService(repo).(*userService)
	svc.cost = 4

	user, err := svc.Create(ctx, CreateUserInput{Firstname: "Jane", Lastname: "Doe", Email: "jane@example.com", Password: "long enough"})
	require.NoError(t, err)
	assert.NotEqual(t, "long enough", user.Password)

	_, err = svc.Create(ctx, CreateUserInput{Firstname: "Jane", Lastname: "Doe", Email: "JANE@example.com", Password: "long enough"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	_, err = svc.Create(ctx, CreateUserInput{Firstname: "Joe", Lastname: "Doe", Email: "joe@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.BadParameterError)

	require.NoError(t, svc.Delete(ctx, user.ID))
	assert.ErrorIs(t, svc.Delete(ctx, user.ID), domain.ErrUserNotFound)
}

type stubHistoryRepo struct {
	filter []repository.HistoryFilter
}

func (s *stubHistoryRepo) Insert(ctx context.Context, record *history.Record) error { return nil }
func (s *stubHistoryRepo) List(ctx context.Context, filter repository.HistoryFilter) ([]*history.Record, error) {
	s.filter = append(s.filter, filter)
	return []*history.Record{{Table: filter.Table, TableID: filter.TableID}}, nil
}

func TestHistoryService(t *testing.T) {
	registry, err := domain.HistoryRegistry()
	require.NoError(t, err)
	repo := &stubHistoryRepo{}
	svc := NewHistoryService(repo, registry)

	records, err := svc.List(context.Background(), domain.TableInvoices, 3, 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(3), records[0].TableID)

	_, err = svc.List(context.Background(), "timers", 3, 10, 0)
	assert.ErrorIs(t, err, domain.BadParameterError)
}
