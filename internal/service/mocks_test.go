package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
)

// mock implementations

type mockInvoiceRepo struct {
	mu       sync.Mutex
	nextID   int64
	invoices map[int64]*domain.Invoice
	lines    map[int64][]*domain.InvoiceLine
	logs     map[int64][]*domain.InvoiceLog
	updated  []*domain.Invoice
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices: make(map[int64]*domain.Invoice),
		lines:    make(map[int64][]*domain.InvoiceLine),
		logs:     make(map[int64][]*domain.InvoiceLog),
	}
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	invoice.ID = m.nextID
	m.invoices[invoice.ID] = invoice.Clone()
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, id)
	}
	out := inv.Clone()
	out.Lines = append([]*domain.InvoiceLine{}, m.lines[id]...)
	out.Logs = append([]*domain.InvoiceLog{}, m.logs[id]...)
	return out, nil
}

func (m *mockInvoiceRepo) List(ctx context.Context, filter repository.InvoiceFilter) ([]*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Invoice, 0)
	for id, inv := range m.invoices {
		if inv.Archived && !filter.IncludeArchived {
			continue
		}
		if filter.Year > 0 && inv.CreatedAt.Year() != filter.Year {
			continue
		}
		c := inv.Clone()
		c.Client = &domain.Client{Audit: domain.Audit{ID: inv.ClientID}, Name: fmt.Sprintf("client-%d", inv.ClientID)}
		if filter.WithLines {
			c.Lines = append([]*domain.InvoiceLine{}, m.lines[id]...)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Newest {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *mockInvoiceRepo) Update(ctx context.Context, invoice *domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[invoice.ID]; !ok {
		return domain.ErrInvoiceNotFound
	}
	m.invoices[invoice.ID] = invoice.Clone()
	m.updated = append(m.updated, invoice.Clone())
	return nil
}

func (m *mockInvoiceRepo) Remove(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return domain.ErrInvoiceNotFound
	}
	inv.Archived = true
	return nil
}

func (m *mockInvoiceRepo) Count(ctx context.Context, state domain.InvoiceState) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inv := range m.invoices {
		if !inv.Archived && inv.State == state {
			n++
		}
	}
	return n, nil
}

func (m *mockInvoiceRepo) Years(ctx context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, inv := range m.invoices {
		if y := inv.CreatedAt.Year(); !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years, nil
}

func (m *mockInvoiceRepo) AddLine(ctx context.Context, line *domain.InvoiceLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	line.ID = int64(len(m.lines[line.InvoiceID]) + 1)
	m.lines[line.InvoiceID] = append(m.lines[line.InvoiceID], line)
	return nil
}

func (m *mockInvoiceRepo) GetLines(ctx context.Context, invoiceID int64) ([]*domain.InvoiceLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// return a copy
	out := make([]*domain.InvoiceLine, len(m.lines[invoiceID]))
	copy(out, m.lines[invoiceID])
	return out, nil
}

func (m *mockInvoiceRepo) ArchiveLines(ctx context.Context, invoiceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range m.lines[invoiceID] {
		line.Archived = true
	}
	return nil
}

func (m *mockInvoiceRepo) AddLog(ctx context.Context, log *domain.InvoiceLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = int64(len(m.logs[log.InvoiceID]) + 1)
	m.logs[log.InvoiceID] = append(m.logs[log.InvoiceID], log)
	return nil
}

func (m *mockInvoiceRepo) GetLogs(ctx context.Context, invoiceID int64) ([]*domain.InvoiceLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.InvoiceLog{}, m.logs[invoiceID]...), nil
}

func (m *mockInvoiceRepo) HasLog(ctx context.Context, invoiceID int64, code domain.InvoiceState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.logs[invoiceID] {
		if l.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInvoiceRepo) codes(invoiceID int64) []domain.InvoiceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.InvoiceState, 0)
	for _, l := range m.logs[invoiceID] {
		out = append(out, l.Code)
	}
	return out
}

type mockClientRepo struct {
	clients map[int64]*domain.Client
	removed []int64
}

func newMockClientRepo(ids ...int64) *mockClientRepo {
	m := &mockClientRepo{clients: make(map[int64]*domain.Client)}
	for _, id := range ids {
		c := domain.NewClient(fmt.Sprintf("client-%d", id), "Jane", "Doe")
		c.ID = id
		m.clients[id] = c
	}
	return m
}

func (m *mockClientRepo) Create(ctx context.Context, client *domain.Client) error {
	client.ID = int64(len(m.clients) + 1)
	m.clients[client.ID] = client
	return nil
}
func (m *mockClientRepo) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	if c, ok := m.clients[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: id %d", domain.ErrClientNotFound, id)
}
func (m *mockClientRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Client, error) {
	out := make([]*domain.Client, 0)
	for _, c := range m.clients {
		if !c.Archived || includeArchived {
			out = append(out, c)
		}
	}
	return out, nil
}
func (m *mockClientRepo) Update(ctx context.Context, client *domain.Client) error {
	m.clients[client.ID] = client
	return nil
}
func (m *mockClientRepo) Remove(ctx context.Context, id int64) error {
	if _, ok := m.clients[id]; !ok {
		return domain.ErrClientNotFound
	}
	m.clients[id].Archived = true
	m.removed = append(m.removed, id)
	return nil
}
func (m *mockClientRepo) Count(ctx context.Context) (int, error) {
	list, _ := m.List(ctx, false)
	return len(list), nil
}

type mockServiceRepo struct {
	services map[int64]*domain.Service
}

func newMockServiceRepo(ids ...int64) *mockServiceRepo {
	m := &mockServiceRepo{services: make(map[int64]*domain.Service)}
	for _, id := range ids {
		s := domain.NewService(fmt.Sprintf("service-%d", id), "", domain.ServiceTypeUnique)
		s.ID = id
		m.services[id] = s
	}
	return m
}

func (m *mockServiceRepo) Create(ctx context.Context, service *domain.Service) error {
	service.ID = int64(len(m.services) + 1)
	m.services[service.ID] = service
	return nil
}
func (m *mockServiceRepo) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	if s, ok := m.services[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: id %d", domain.ErrServiceNotFound, id)
}
func (m *mockServiceRepo) List(ctx context.Context, includeArchived bool) ([]*domain.Service, error) {
	out := make([]*domain.Service, 0)
	for _, s := range m.services {
		if !s.Archived || includeArchived {
			out = append(out, s)
		}
	}
	return out, nil
}
func (m *mockServiceRepo) Update(ctx context.Context, service *domain.Service) error {
	m.services[service.ID] = service
	return nil
}
func (m *mockServiceRepo) Remove(ctx context.Context, id int64) error {
	if _, ok := m.services[id]; !ok {
		return domain.ErrServiceNotFound
	}
	m.services[id].Archived = true
	return nil
}
func (m *mockServiceRepo) Count(ctx context.Context) (int, error) {
	list, _ := m.List(ctx, false)
	return len(list), nil
}

type mockSettingRepo struct {
	counter int64
}

func (m *mockSettingRepo) Get(ctx context.Context, key domain.SettingKey) (*domain.Setting, error) {
	return &domain.Setting{Key: key, Value: fmt.Sprint(m.counter)}, nil
}
func (m *mockSettingRepo) NextInvoiceNumber(ctx context.Context) (int64, error) {
	m.counter++
	return m.counter, nil
}

type mockUserRepo struct {
	users   map[int64]*domain.User
	updated []*domain.User
}

func newMockUserRepo(users ...*domain.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[int64]*domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	user.ID = int64(len(m.users) + 1)
	m.users[user.ID] = user
	return nil
}
func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == domain.NormalizeEmail(email) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, email)
}
func (m *mockUserRepo) List(ctx context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}
func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	m.users[user.ID] = user
	m.updated = append(m.updated, user)
	return nil
}
func (m *mockUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}
func (m *mockUserRepo) ActorExists(ctx context.Context, id int64) (bool, error) {
	_, ok := m.users[id]
	return ok, nil
}

type mockConnexionRepo struct {
	logs map[string]*domain.ConnexionLog
}

func (m *mockConnexionRepo) GetByEmail(ctx context.Context, email string) (*domain.ConnexionLog, error) {
	if l, ok := m.logs[email]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}
func (m *mockConnexionRepo) Save(ctx context.Context, log *domain.ConnexionLog) error {
	if log.ID == 0 {
		log.ID = int64(len(m.logs) + 1)
	}
	cp := *log
	m.logs[log.Email] = &cp
	return nil
}

type mockRenderer struct {
	rendered []*domain.Invoice
	err      error
}

func (m *mockRenderer) Render(ctx context.Context, invoice *domain.Invoice) (string, error) {
	m.rendered = append(m.rendered, invoice)
	return "/tmp/" + invoice.Number + ".pdf", m.err
}
