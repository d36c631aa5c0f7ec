package repository

import (
	"context"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/history"
)

// ChangeHook is notified after an audited row was written.
// *history.Recorder satisfies it.
type ChangeHook interface {
	Created(ctx context.Context, entity history.Entity)
	Updated(ctx context.Context, entity, previous history.Entity)
	Removed(ctx context.Context, entity history.Entity)
}

type noopHook struct{}

func (noopHook) Created(context.Context, history.Entity)                 {}
func (noopHook) Updated(context.Context, history.Entity, history.Entity) {}
func (noopHook) Removed(context.Context, history.Entity)                 {}

func hookOrNoop(h ChangeHook) ChangeHook {
	if h == nil {
		return noopHook{}
	}
	return h
}

// UserRepository manages back-office accounts
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
	// ActorExists resolves history actors
	ActorExists(ctx context.Context, id int64) (bool, error)
}

// ClientRepository manages client persistence
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	List(ctx context.Context, includeArchived bool) ([]*domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	Remove(ctx context.Context, id int64) error // archives
	Count(ctx context.Context) (int, error)     // non-archived only
}

// ServiceRepository manages the service catalog
type ServiceRepository interface {
	Create(ctx context.Context, service *domain.Service) error
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
	List(ctx context.Context, includeArchived bool) ([]*domain.Service, error)
	Update(ctx context.Context, service *domain.Service) error
	Remove(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

// InvoiceFilter narrows InvoiceRepository.List
type InvoiceFilter struct {
	ClientID        *int64
	State           *domain.InvoiceState
	IncludeArchived bool
	Year            int // creation year, 0 for all
	Limit           uint64
	Newest          bool // order by creation date descending instead of name
	WithLines       bool
}

// InvoiceRepository manages invoices, their lines and their logs
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	// GetByID loads the invoice with its client, lines (and services) and logs
	GetByID(ctx context.Context, id int64) (*domain.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*domain.Invoice, error)
	Update(ctx context.Context, invoice *domain.Invoice) error
	Remove(ctx context.Context, id int64) error
	Count(ctx context.Context, state domain.InvoiceState) (int, error)
	Years(ctx context.Context) ([]int, error)

	AddLine(ctx context.Context, line *domain.InvoiceLine) error
	GetLines(ctx context.Context, invoiceID int64) ([]*domain.InvoiceLine, error)
	ArchiveLines(ctx context.Context, invoiceID int64) error

	AddLog(ctx context.Context, log *domain.InvoiceLog) error
	GetLogs(ctx context.Context, invoiceID int64) ([]*domain.InvoiceLog, error)
	HasLog(ctx context.Context, invoiceID int64, code domain.InvoiceState) (bool, error)
}

// SettingRepository reads key/value settings
type SettingRepository interface {
	Get(ctx context.Context, key domain.SettingKey) (*domain.Setting, error)
	// NextInvoiceNumber atomically increments and returns the invoice counter
	NextInvoiceNumber(ctx context.Context) (int64, error)
}

// ConnexionLogRepository tracks failed logins
type ConnexionLogRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.ConnexionLog, error) // nil if none
	Save(ctx context.Context, log *domain.ConnexionLog) error
}

// HistoryFilter narrows HistoryRepository.List
type HistoryFilter struct {
	Table   string
	TableID int64
	Limit   uint64
	Offset  uint64
}

// HistoryRepository is the append-only history store
type HistoryRepository interface {
	Insert(ctx context.Context, record *history.Record) error
	List(ctx context.Context, filter HistoryFilter) ([]*history.Record, error)
}
