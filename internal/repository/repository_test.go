package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/history"
	"github.com/andy/invoicer/internal/logging"
	"github.com/andy/invoicer/internal/reqctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"), "test-key")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations())
	t.Cleanup(func() { database.Close() })
	return database
}

type hookCall struct {
	kind     string
	table    string
	id       int64
	previous history.Entity
}

// recordingHook captures notifications
type recordingHook struct {
	mu    sync.Mutex
	calls []hookCall
}

func (h *recordingHook) add(c hookCall) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, c)
}

func (h *recordingHook) Created(_ context.Context, e history.Entity) {
	h.add(hookCall{kind: "create", table: e.HistoryTable(), id: e.HistoryID()})
}

func (h *recordingHook) Updated(_ context.Context, e, prev history.Entity) {
	h.add(hookCall{kind: "update", table: e.HistoryTable(), id: e.HistoryID(), previous: prev})
}

func (h *recordingHook) Removed(_ context.Context, e history.Entity) {
	h.add(hookCall{kind: "delete", table: e.HistoryTable(), id: e.HistoryID()})
}

func seedClient(t *testing.T, repo *ClientRepo) *domain.Client {
	t.Helper()
	client := domain.NewClient("ACME", "Jane", "Doe")
	require.NoError(t, repo.Create(context.Background(), client))
	return client
}

func seedService(t *testing.T, repo *ServiceRepo) *domain.Service {
	t.Helper()
	service := domain.NewService("Hosting", "Yearly hosting", domain.ServiceTypeYearly)
	require.NoError(t, repo.Create(context.Background(), service))
	return service
}

func TestClientRepo_CRUD(t *testing.T) {
	ctx := context.Background()
	hook := &recordingHook{}
	repo := NewClientRepo(openTestDB(t), hook)

	client := seedClient(t, repo)
	require.NotZero(t, client.ID)

	got, err := repo.GetByID(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME", got.Name)
	assert.False(t, got.Email.Valid)
	assert.True(t, client.CreatedAt.Equal(got.CreatedAt))

	got.Email.SetValid("jane@acme.test")
	require.NoError(t, repo.Update(ctx, got))

	reloaded, err := repo.GetByID(ctx, client.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@acme.test", reloaded.Email.String)

	require.NoError(t, repo.Remove(ctx, client.ID))
	active, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.Len(t, hook.calls, 3)
	assert.Equal(t, "create", hook.calls[0].kind)
	assert.Equal(t, "update", hook.calls[1].kind)
	prev := hook.calls[1].previous.(*domain.Client)
	assert.False(t, prev.Email.Valid, "previous state must be loaded before the update")
	assert.Equal(t, "update", hook.calls[2].kind)
}

func TestClientRepo_NotFound(t *testing.T) {
	repo := NewClientRepo(openTestDB(t), nil)

	_, err := repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
	assert.ErrorIs(t, err, domain.NotFoundError)

	assert.ErrorIs(t, repo.Remove(context.Background(), 42), domain.ErrEntityNotFound)
}

func TestInvoiceRepo_FullInvoice(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	clients := NewClientRepo(database, nil)
	services := NewServiceRepo(database, nil)
	repo := NewInvoiceRepo(database, nil)

	client := seedClient(t, clients)
	service := seedService(t, services)

	inv := domain.NewInvoice("Test", client.ID)
	inv.Number = "000001"
	inv.Reference = "000000000000000000000000011"
	require.NoError(t, repo.Create(ctx, inv))

	require.NoError(t, repo.AddLine(ctx, domain.NewInvoiceLine(inv.ID, service.ID, 2, 100)))
	require.NoError(t, repo.AddLine(ctx, domain.NewInvoiceLine(inv.ID, service.ID, 1, 50)))
	require.NoError(t, repo.AddLog(ctx, domain.NewInvoiceLog(inv, domain.InvoiceStateCreated, "created")))

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Client)
	assert.Equal(t, "ACME", got.Client.Name)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "Hosting", got.Lines[0].Service.Name)
	assert.InDelta(t, 250.0, got.Total(), 0.001)
	require.Len(t, got.Logs, 1)
	assert.Equal(t, domain.InvoiceStateCreated, got.Logs[0].Code)

	has, err := repo.HasLog(ctx, inv.ID, domain.InvoiceStateSent)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.ArchiveLines(ctx, inv.ID))
	got, err = repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Total())
}

func TestInvoiceRepo_ListFilters(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	clients := NewClientRepo(database, nil)
	services := NewServiceRepo(database, nil)
	repo := NewInvoiceRepo(database, nil)

	client := seedClient(t, clients)
	service := seedService(t, services)

	for i, name := range []string{"B", "A", "C"} {
		inv := domain.NewInvoice(name, client.ID)
		inv.Number = string(rune('1' + i))
		inv.CreatedAt = time.Date(2023+i, 3, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Create(ctx, inv))
		require.NoError(t, repo.AddLine(ctx, domain.NewInvoiceLine(inv.ID, service.ID, 1, float64(10*(i+1)))))
	}

	all, err := repo.List(ctx, InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Name)
	assert.Empty(t, all[0].Lines)

	newest, err := repo.List(ctx, InvoiceFilter{Newest: true, Limit: 2, WithLines: true})
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, "C", newest[0].Name)
	assert.InDelta(t, 30.0, newest[0].Total(), 0.001)

	year, err := repo.List(ctx, InvoiceFilter{Year: 2024})
	require.NoError(t, err)
	require.Len(t, year, 1)
	assert.Equal(t, "A", year[0].Name)

	sent := domain.InvoiceStateSent
	none, err := repo.List(ctx, InvoiceFilter{State: &sent})
	require.NoError(t, err)
	assert.Empty(t, none)

	years, err := repo.Years(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2024, 2025}, years)

	require.NoError(t, repo.Remove(ctx, year[0].ID))
	active, err := repo.List(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestSettingRepo_NextInvoiceNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingRepo(openTestDB(t))

	for want := int64(1); want <= 3; want++ {
		got, err := repo.NextInvoiceNumber(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	setting, err := repo.Get(ctx, domain.SettingInvoiceNumber)
	require.NoError(t, err)
	assert.Equal(t, "3", setting.Value)

	_, err = repo.Get(ctx, "MISSING")
	assert.ErrorIs(t, err, domain.ErrSettingNotFound)
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	hook := &recordingHook{}
	repo := NewUserRepo(openTestDB(t), hook)

	user := domain.NewUser("Jane", "Doe", "Jane@Example.com", "$2a$10$hash")
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	exists, err := repo.ActorExists(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(ctx, user.ID))
	exists, err = repo.ActorExists(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Equal(t, "delete", hook.calls[len(hook.calls)-1].kind)
}

func TestConnexionLogRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewConnexionLogRepo(openTestDB(t), nil)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	log := domain.NewConnexionLog("jane@example.com")
	now := time.Now()
	log.RegisterFailure(now, 1, time.Hour)
	require.NoError(t, repo.Save(ctx, log))

	got, err := repo.GetByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Blocked(now))

	got.Reset()
	require.NoError(t, repo.Save(ctx, got))
	got, err = repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, got.BlockedUntil.Valid)
}

// Repositories wired to a real recorder produce history rows for the acting user.
func TestHistoryEndToEnd(t *testing.T) {
	database := openTestDB(t)
	historyRepo := NewHistoryRepo(database)
	users := NewUserRepo(database, nil)

	registry, err := domain.HistoryRegistry()
	require.NoError(t, err)
	recorder := history.NewRecorder(registry, historyRepo, users, history.Options{Logger: logging.Discard()})
	recorder.Start(context.Background())

	actor := domain.NewUser("Ann", "Admin", "ann@example.com", "$2a$10$hash")
	require.NoError(t, users.Create(context.Background(), actor))

	clients := NewClientRepo(database, recorder)
	connexions := NewConnexionLogRepo(database, recorder)

	var clientID int64
	err = reqctx.Run(context.Background(), actor.ID, func(ctx context.Context) error {
		client := domain.NewClient("ACME", "Jane", "Doe")
		if err := clients.Create(ctx, client); err != nil {
			return err
		}
		clientID = client.ID
		client.Name = "ACME SA"
		if err := clients.Update(ctx, client); err != nil {
			return err
		}
		return connexions.Save(ctx, domain.NewConnexionLog("x@example.com"))
	})
	require.NoError(t, err)

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Close(shutdown))

	records, err := historyRepo.List(context.Background(), HistoryFilter{Table: domain.TableClients, TableID: clientID})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, history.KindCreate, records[0].Kind)
	assert.Equal(t, actor.ID, records[0].UserID)
	assert.Equal(t, "ACME", records[0].Value["name"])
	assert.Nil(t, records[0].Changes)

	assert.Equal(t, history.KindUpdate, records[1].Kind)
	assert.Equal(t, map[string]any{"name": "ACME SA"}, records[1].Changes)

	disabled, err := historyRepo.List(context.Background(), HistoryFilter{Table: domain.TableConnexionLogs})
	require.NoError(t, err)
	assert.Empty(t, disabled)
}

func TestHistoryRepo_ListOffsetWithoutLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewHistoryRepo(openTestDB(t))

	for i := 0; i < 7; i++ {
		require.NoError(t, repo.Insert(ctx, &history.Record{
			Table:     domain.TableClients,
			TableID:   1,
			Kind:      history.KindUpdate,
			Value:     map[string]any{"name": "ACME"},
			Changes:   map[string]any{"name": i},
			UserID:    1,
			CreatedAt: time.Now(),
		}))
	}

	records, err := repo.List(ctx, HistoryFilter{Table: domain.TableClients, TableID: 1, Offset: 5})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Less(t, records[0].ID, records[1].ID)
	assert.EqualValues(t, 5, records[0].Changes["name"])

	page, err := repo.List(ctx, HistoryFilter{Table: domain.TableClients, TableID: 1, Limit: 2, Offset: 5})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, records[0].ID, page[0].ID)
}

func TestClientRepo_FailedUpdateKeepsTimestamp(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	hook := &recordingHook{}
	repo := NewClientRepo(database, hook)

	client := seedClient(t, repo)
	client.UpdatedAt = client.UpdatedAt.Add(-time.Hour)
	before := client.UpdatedAt

	_, err := database.Exec(`CREATE TRIGGER clients_frozen BEFORE UPDATE ON clients
		BEGIN SELECT RAISE(ABORT, 'clients are frozen'); END`)
	require.NoError(t, err)

	client.Name = "ACME SA"
	require.Error(t, repo.Update(ctx, client))
	assert.True(t, before.Equal(client.UpdatedAt))

	_, err = database.Exec(`DROP TRIGGER clients_frozen`)
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, client))
	assert.True(t, client.UpdatedAt.After(before))

	require.Len(t, hook.calls, 2, "failed update must not notify")
	assert.Equal(t, "update", hook.calls[1].kind)
}
