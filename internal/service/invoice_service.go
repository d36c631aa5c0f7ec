package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/qrbill"
	"github.com/andy/invoicer/internal/repository"
	"github.com/andy/invoicer/internal/reqctx"
	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
)

// Renderer produces the printable document of an invoice and returns its path
type Renderer interface {
	Render(ctx context.Context, invoice *domain.Invoice) (string, error)
}

// Exporter writes a year of invoices to w
type Exporter interface {
	Export(w io.Writer, year int, invoices []*domain.Invoice) error
}

type InvoiceLineInput struct {
	ServiceID int64
	Quantity  float64
	Amount    float64
}

type InvoiceInput struct {
	Name     string
	ClientID int64
	DueAt    null.Time
	Lines    []InvoiceLineInput
}

// GeneratedInvoice is the result of Generate
type GeneratedInvoice struct {
	Invoice *domain.Invoice
	Total   float64
	Path    string // empty when no renderer is configured
}

// InvoiceOptions configures numbering and due dates
type InvoiceOptions struct {
	NumberWidth    int
	DefaultDueDays int
}

// InvoiceService manages the invoice lifecycle
type InvoiceService interface {
	// Create numbers a new invoice, adds its lines and logs CREATED
	Create(ctx context.Context, input InvoiceInput) (*domain.Invoice, error)

	// Update replaces the invoice fields, and the lines when given, then logs
	// UPDATED. The state is kept.
	Update(ctx context.Context, id int64, input InvoiceInput) (*domain.Invoice, error)

	// ChangeState sets any state of the enumeration and logs it
	ChangeState(ctx context.Context, id int64, state domain.InvoiceState) (*domain.Invoice, error)

	// Generate moves the invoice to GENERATED unless it was already sent,
	// sets a missing due date, logs GENERATED and renders the document
	Generate(ctx context.Context, id int64) (*GeneratedInvoice, error)

	// Delete archives the lines, then the invoice
	Delete(ctx context.Context, id int64) error

	Get(ctx context.Context, id int64) (*domain.Invoice, error)
	List(ctx context.Context, filter repository.InvoiceFilter) ([]*domain.Invoice, error)
	Logs(ctx context.Context, id int64) ([]*domain.InvoiceLog, error)

	// Export writes the invoices created during year
	Export(ctx context.Context, year int, w io.Writer) error
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	clientRepo  repository.ClientRepository
	serviceRepo repository.ServiceRepository
	settingRepo repository.SettingRepository
	userRepo    repository.UserRepository
	renderer    Renderer
	exporter    Exporter
	opts        InvoiceOptions
	now         func() time.Time
}

// NewInvoiceService creates a new invoice service. renderer and exporter may be nil.
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	serviceRepo repository.ServiceRepository,
	settingRepo repository.SettingRepository,
	userRepo repository.UserRepository,
	renderer Renderer,
	exporter Exporter,
	opts InvoiceOptions,
) InvoiceService {
	if opts.NumberWidth <= 0 {
		opts.NumberWidth = 6
	}
	if opts.DefaultDueDays <= 0 {
		opts.DefaultDueDays = 30
	}
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		serviceRepo: serviceRepo,
		settingRepo: settingRepo,
		userRepo:    userRepo,
		renderer:    renderer,
		exporter:    exporter,
		opts:        opts,
		now:         time.Now,
	}
}

func (s *invoiceService) Create(ctx context.Context, input InvoiceInput) (*domain.Invoice, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	number, reference, err := s.nextNumber(ctx)
	if err != nil {
		return nil, err
	}

	invoice := domain.NewInvoice(input.Name, input.ClientID)
	invoice.Number = number
	invoice.Reference = reference
	invoice.DueAt = input.DueAt
	if err := invoice.Validate(); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}
	if err := s.addLines(ctx, invoice, input.Lines); err != nil {
		return nil, err
	}
	if err := s.log(ctx, invoice, domain.InvoiceStateCreated, "created"); err != nil {
		return nil, err
	}

	reqctx.Logger(ctx).InfoContext(ctx, "invoice created", "invoice_id", invoice.ID, "number", invoice.Number)
	return invoice, nil
}

func (s *invoiceService) Update(ctx context.Context, id int64, input InvoiceInput) (*domain.Invoice, error) {
	if err := requireID(id, "invoice"); err != nil {
		return nil, err
	}
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	invoice, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	invoice.Name = input.Name
	invoice.ClientID = input.ClientID
	if input.DueAt.Valid {
		invoice.DueAt = input.DueAt
	}
	if err := invoice.Validate(); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}

	// nil keeps the current lines, an empty slice clears them
	if input.Lines != nil {
		if err := s.invoiceRepo.ArchiveLines(ctx, invoice.ID); err != nil {
			return nil, err
		}
		invoice.Lines = nil
		if err := s.addLines(ctx, invoice, input.Lines); err != nil {
			return nil, err
		}
	}
	if err := s.log(ctx, invoice, domain.InvoiceStateUpdated, "updated"); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) ChangeState(ctx context.Context, id int64, state domain.InvoiceState) (*domain.Invoice, error) {
	if err := requireID(id, "invoice"); err != nil {
		return nil, err
	}
	if !state.Valid() {
		return nil, errors.Wrapf(domain.ErrInvalidInvoiceState, "%q", state)
	}

	invoice, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(invoice.State, state) {
		return nil, errors.Wrapf(domain.ErrInvalidInvoiceState, "%s to %s", invoice.State, state)
	}

	invoice.State = state
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	if err := s.log(ctx, invoice, state, fmt.Sprintf("set to %s", state)); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) Generate(ctx context.Context, id int64) (*GeneratedInvoice, error) {
	if err := requireID(id, "invoice"); err != nil {
		return nil, err
	}

	invoice, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	sent, err := s.invoiceRepo.HasLog(ctx, id, domain.InvoiceStateSent)
	if err != nil {
		return nil, err
	}

	changed := false
	if !sent && invoice.State != domain.InvoiceStateGenerated {
		invoice.State = domain.InvoiceStateGenerated
		changed = true
	}
	if invoice.EnsureDueDate(s.now(), s.opts.DefaultDueDays) {
		changed = true
	}
	if changed {
		if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
			return nil, err
		}
	}

	if err := s.log(ctx, invoice, domain.InvoiceStateGenerated, "generated"); err != nil {
		return nil, err
	}

	result := &GeneratedInvoice{Invoice: invoice, Total: invoice.Total()}
	if s.renderer != nil {
		path, err := s.renderer.Render(ctx, invoice)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to render invoice %s", invoice.Number)
		}
		result.Path = path
	}
	return result, nil
}

func (s *invoiceService) Delete(ctx context.Context, id int64) error {
	if err := requireID(id, "invoice"); err != nil {
		return err
	}
	if _, err := s.invoiceRepo.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.invoiceRepo.ArchiveLines(ctx, id); err != nil {
		return err
	}
	return s.invoiceRepo.Remove(ctx, id)
}

func (s *invoiceService) Get(ctx context.Context, id int64) (*domain.Invoice, error) {
	if err := requireID(id, "invoice"); err != nil {
		return nil, err
	}
	return s.invoiceRepo.GetByID(ctx, id)
}

func (s *invoiceService) List(ctx context.Context, filter repository.InvoiceFilter) ([]*domain.Invoice, error) {
	return s.invoiceRepo.List(ctx, filter)
}

func (s *invoiceService) Logs(ctx context.Context, id int64) ([]*domain.InvoiceLog, error) {
	if err := requireID(id, "invoice"); err != nil {
		return nil, err
	}
	if _, err := s.invoiceRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.invoiceRepo.GetLogs(ctx, id)
}

func (s *invoiceService) Export(ctx context.Context, year int, w io.Writer) error {
	if s.exporter == nil {
		return errors.New("no exporter configured")
	}
	if year <= 0 {
		return domain.BadParameterf("year is required")
	}
	invoices, err := s.invoiceRepo.List(ctx, repository.InvoiceFilter{Year: year, WithLines: true})
	if err != nil {
		return err
	}
	return s.exporter.Export(w, year, invoices)
}

// editable loads a full invoice that is not archived
func (s *invoiceService) editable(ctx context.Context, id int64) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Archived {
		return nil, errors.Wrapf(domain.ErrInvoiceArchived, "invoice %s", invoice.Number)
	}
	return invoice, nil
}

func (s *invoiceService) validateInput(ctx context.Context, input InvoiceInput) error {
	if input.Name == "" {
		return domain.BadParameterf("invoice name is required")
	}
	if err := requireID(input.ClientID, "client"); err != nil {
		return err
	}
	if _, err := s.clientRepo.GetByID(ctx, input.ClientID); err != nil {
		return err
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 || line.Amount < 0 {
			return domain.BadParameterf("invalid quantity or amount for service %d", line.ServiceID)
		}
		if _, err := s.serviceRepo.GetByID(ctx, line.ServiceID); err != nil {
			return err
		}
	}
	return nil
}

func (s *invoiceService) addLines(ctx context.Context, invoice *domain.Invoice, lines []InvoiceLineInput) error {
	for _, in := range lines {
		line := domain.NewInvoiceLine(invoice.ID, in.ServiceID, in.Quantity, in.Amount)
		if err := s.invoiceRepo.AddLine(ctx, line); err != nil {
			return err
		}
		invoice.Lines = append(invoice.Lines, line)
	}
	return nil
}

// nextNumber returns the zero padded number and its QR reference
func (s *invoiceService) nextNumber(ctx context.Context) (string, string, error) {
	n, err := s.settingRepo.NextInvoiceNumber(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate invoice number: %w", err)
	}
	number := fmt.Sprintf("%0*d", s.opts.NumberWidth, n)
	reference, err := qrbill.ReferenceFor(number)
	if err != nil {
		return "", "", fmt.Errorf("failed to compute reference: %w", err)
	}
	return number, reference, nil
}

func (s *invoiceService) log(ctx context.Context, invoice *domain.Invoice, code domain.InvoiceState, action string) error {
	details := fmt.Sprintf("%s %s invoice %s", actorName(ctx, s.userRepo), action, invoice.Number)
	entry := domain.NewInvoiceLog(invoice, code, details)
	if err := s.invoiceRepo.AddLog(ctx, entry); err != nil {
		return err
	}
	invoice.Logs = append(invoice.Logs, entry)
	return nil
}
