package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
	"github.com/guregu/null/v5"
)

// InvoiceRepo is a SQLite implementation of InvoiceRepository
type InvoiceRepo struct {
	db   *db.DB
	hook ChangeHook
}

// NewInvoiceRepo creates a new InvoiceRepo; hook may be nil
func NewInvoiceRepo(database *db.DB, hook ChangeHook) *InvoiceRepo {
	return &InvoiceRepo{db: database, hook: hookOrNoop(hook)}
}

var (
	invoiceColumns = []string{
		"i.id", "i.name", "i.number", "i.reference", "i.state", "i.is_archived",
		"i.due_at", "i.client_id", "i.created_at", "i.updated_at",
	}
	joinedClientColumns = []string{
		"c.id", "c.name", "c.firstname", "c.lastname", "c.email", "c.phone_number", "c.remark",
		"c.address", "c.address_number", "c.postal_code", "c.city", "c.is_archived", "c.created_at", "c.updated_at",
	}
	lineColumns = []string{
		"l.id", "l.invoice_id", "l.service_id", "l.quantity", "l.amount", "l.is_archived", "l.created_at", "l.updated_at",
		"s.id", "s.name", "s.description", "s.type", "s.is_archived", "s.created_at", "s.updated_at",
	}
)

func scanInvoice(row scanner, withClient bool) (*domain.Invoice, error) {
	invoice := &domain.Invoice{}
	var state, createdAt, updatedAt string
	var dueAt null.String

	dest := []any{
		&invoice.ID,
		&invoice.Name,
		&invoice.Number,
		&invoice.Reference,
		&state,
		&invoice.Archived,
		&dueAt,
		&invoice.ClientID,
		&createdAt,
		&updatedAt,
	}

	var client domain.Client
	var clientCreatedAt, clientUpdatedAt string
	if withClient {
		dest = append(dest,
			&client.ID,
			&client.Name,
			&client.Firstname,
			&client.Lastname,
			&client.Email,
			&client.PhoneNumber,
			&client.Remark,
			&client.Address,
			&client.AddressNumber,
			&client.PostalCode,
			&client.City,
			&client.Archived,
			&clientCreatedAt,
			&clientUpdatedAt,
		)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	invoice.State = domain.InvoiceState(state)
	if invoice.DueAt, err = parseNullTime(dueAt); err != nil {
		return nil, fmt.Errorf("failed to parse due_at: %w", err)
	}
	if err := parseAudit(createdAt, updatedAt, &invoice.CreatedAt, &invoice.UpdatedAt); err != nil {
		return nil, err
	}

	if withClient {
		if err := parseAudit(clientCreatedAt, clientUpdatedAt, &client.CreatedAt, &client.UpdatedAt); err != nil {
			return nil, err
		}
		invoice.Client = &client
	}

	invoice.Lines = make([]*domain.InvoiceLine, 0)
	return invoice, nil
}

func scanLine(row scanner) (*domain.InvoiceLine, error) {
	line := &domain.InvoiceLine{Service: &domain.Service{}}
	var createdAt, updatedAt, serviceType, serviceCreatedAt, serviceUpdatedAt string

	err := row.Scan(
		&line.ID,
		&line.InvoiceID,
		&line.ServiceID,
		&line.Quantity,
		&line.Amount,
		&line.Archived,
		&createdAt,
		&updatedAt,
		&line.Service.ID,
		&line.Service.Name,
		&line.Service.Description,
		&serviceType,
		&line.Service.Archived,
		&serviceCreatedAt,
		&serviceUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	line.Service.Type = domain.ServiceType(serviceType)
	if err := parseAudit(createdAt, updatedAt, &line.CreatedAt, &line.UpdatedAt); err != nil {
		return nil, err
	}
	if err := parseAudit(serviceCreatedAt, serviceUpdatedAt, &line.Service.CreatedAt, &line.Service.UpdatedAt); err != nil {
		return nil, err
	}
	return line, nil
}

// Create inserts a new invoice. Lines are added with AddLine.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	query := `
		INSERT INTO invoices (name, number, reference, state, is_archived, due_at, client_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		invoice.Name,
		invoice.Number,
		invoice.Reference,
		string(invoice.State),
		invoice.Archived,
		nullTimeValue(invoice.DueAt),
		invoice.ClientID,
		formatTime(invoice.CreatedAt),
		formatTime(invoice.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invoice ID: %w", err)
	}

	invoice.ID = id
	r.hook.Created(ctx, invoice)
	return nil
}

// get loads the invoice row and its client
func (r *InvoiceRepo) get(ctx context.Context, id int64) (*domain.Invoice, error) {
	query, args, err := builder.
		Select(append(append([]string{}, invoiceColumns...), joinedClientColumns...)...).
		From("invoices i").
		Join("clients c ON c.id = i.client_id").
		Where(sq.Eq{"i.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build invoice query: %w", err)
	}

	invoice, err := scanInvoice(r.db.QueryRowContext(ctx, query, args...), true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrInvoiceNotFound, id)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// GetByID retrieves an invoice by ID with its client, lines and logs
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	invoice, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if invoice.Lines, err = r.GetLines(ctx, id); err != nil {
		return nil, err
	}
	if invoice.Logs, err = r.GetLogs(ctx, id); err != nil {
		return nil, err
	}
	return invoice, nil
}

// List retrieves invoices with their client, filtered by filter
func (r *InvoiceRepo) List(ctx context.Context, filter InvoiceFilter) ([]*domain.Invoice, error) {
	q := builder.
		Select(append(append([]string{}, invoiceColumns...), joinedClientColumns...)...).
		From("invoices i").
		Join("clients c ON c.id = i.client_id")

	if filter.ClientID != nil {
		q = q.Where(sq.Eq{"i.client_id": *filter.ClientID})
	}
	if filter.State != nil {
		q = q.Where(sq.Eq{"i.state": string(*filter.State)})
	}
	if !filter.IncludeArchived {
		q = q.Where(sq.Eq{"i.is_archived": false})
	}
	if filter.Year > 0 {
		q = q.Where("strftime('%Y', i.created_at) = ?", fmt.Sprintf("%04d", filter.Year))
	}
	if filter.Newest {
		q = q.OrderBy("i.created_at DESC", "i.id DESC")
	} else {
		q = q.OrderBy("i.name ASC", "i.id ASC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build invoice query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*domain.Invoice, 0)
	byID := make(map[int64]*domain.Invoice)
	for rows.Next() {
		invoice, err := scanInvoice(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
		byID[invoice.ID] = invoice
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}
	rows.Close()

	if filter.WithLines && len(invoices) > 0 {
		ids := make([]int64, 0, len(invoices))
		for _, inv := range invoices {
			ids = append(ids, inv.ID)
		}
		lines, err := r.linesFor(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			if inv, ok := byID[line.InvoiceID]; ok {
				inv.Lines = append(inv.Lines, line)
			}
		}
	}

	return invoices, nil
}

// Update updates the invoice row. Lines and logs are not touched.
func (r *InvoiceRepo) Update(ctx context.Context, invoice *domain.Invoice) error {
	if err := invoice.Validate(); err != nil {
		return fmt.Errorf("invalid invoice: %w", err)
	}

	previous, err := r.get(ctx, invoice.ID)
	if err != nil {
		return err
	}

	updatedAt := invoice.Touched()
	query := `
		UPDATE invoices
		SET name = ?, number = ?, reference = ?, state = ?, is_archived = ?, due_at = ?, client_id = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query,
		invoice.Name,
		invoice.Number,
		invoice.Reference,
		string(invoice.State),
		invoice.Archived,
		nullTimeValue(invoice.DueAt),
		invoice.ClientID,
		formatTime(updatedAt),
		invoice.ID,
	); err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	invoice.UpdatedAt = updatedAt

	r.hook.Updated(ctx, invoice, previous)
	return nil
}

// Remove archives an invoice
func (r *InvoiceRepo) Remove(ctx context.Context, id int64) error {
	invoice, err := r.get(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Archived {
		return nil
	}

	invoice.Archived = true
	return r.Update(ctx, invoice)
}

// Count returns the number of active invoices in state
func (r *InvoiceRepo) Count(ctx context.Context, state domain.InvoiceState) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE is_archived = 0 AND state = ?`, string(state)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}

// Years returns the distinct creation years, ascending
func (r *InvoiceRepo) Years(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT CAST(strftime('%Y', created_at) AS INTEGER) AS year FROM invoices ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice years: %w", err)
	}
	defer rows.Close()

	years := make([]int, 0)
	for rows.Next() {
		var year int
		if err := rows.Scan(&year); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, year)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating years: %w", err)
	}
	return years, nil
}

// AddLine inserts a line on an invoice
func (r *InvoiceRepo) AddLine(ctx context.Context, line *domain.InvoiceLine) error {
	if err := line.Validate(); err != nil {
		return fmt.Errorf("invalid invoice line: %w", err)
	}

	query := `
		INSERT INTO invoice_lines (invoice_id, service_id, quantity, amount, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		line.InvoiceID,
		line.ServiceID,
		line.Quantity,
		line.Amount,
		line.Archived,
		formatTime(line.CreatedAt),
		formatTime(line.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add invoice line: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invoice line ID: %w", err)
	}

	line.ID = id
	r.hook.Created(ctx, line)
	return nil
}

// GetLines retrieves all lines of an invoice with their service, archived included
func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID int64) ([]*domain.InvoiceLine, error) {
	return r.linesFor(ctx, []int64{invoiceID})
}

func (r *InvoiceRepo) linesFor(ctx context.Context, invoiceIDs []int64) ([]*domain.InvoiceLine, error) {
	query, args, err := builder.
		Select(lineColumns...).
		From("invoice_lines l").
		Join("services s ON s.id = l.service_id").
		Where(sq.Eq{"l.invoice_id": invoiceIDs}).
		OrderBy("l.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build invoice line query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice lines: %w", err)
	}
	defer rows.Close()

	lines := make([]*domain.InvoiceLine, 0)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice lines: %w", err)
	}

	return lines, nil
}

// ArchiveLines archives every active line of an invoice
func (r *InvoiceRepo) ArchiveLines(ctx context.Context, invoiceID int64) error {
	lines, err := r.GetLines(ctx, invoiceID)
	if err != nil {
		return err
	}

	for _, line := range lines {
		if line.Archived {
			continue
		}
		previous := *line
		line.Archived = true
		updatedAt := line.Touched()

		if _, err := r.db.ExecContext(ctx,
			`UPDATE invoice_lines SET is_archived = 1, updated_at = ? WHERE id = ?`,
			formatTime(updatedAt), line.ID,
		); err != nil {
			return fmt.Errorf("failed to archive invoice line: %w", err)
		}
		line.UpdatedAt = updatedAt
		r.hook.Updated(ctx, line, &previous)
	}
	return nil
}

// AddLog appends an activity entry to an invoice
func (r *InvoiceRepo) AddLog(ctx context.Context, log *domain.InvoiceLog) error {
	query := `
		INSERT INTO invoice_logs (code, details, invoice_id, client_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		string(log.Code),
		log.Details,
		log.InvoiceID,
		log.ClientID,
		formatTime(log.CreatedAt),
		formatTime(log.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to add invoice log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get invoice log ID: %w", err)
	}

	log.ID = id
	r.hook.Created(ctx, log)
	return nil
}

// GetLogs retrieves the log entries of an invoice, oldest first
func (r *InvoiceRepo) GetLogs(ctx context.Context, invoiceID int64) ([]*domain.InvoiceLog, error) {
	query := `
		SELECT id, code, details, invoice_id, client_id, created_at, updated_at
		FROM invoice_logs
		WHERE invoice_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*domain.InvoiceLog, 0)
	for rows.Next() {
		log := &domain.InvoiceLog{}
		var code, createdAt, updatedAt string

		if err := rows.Scan(&log.ID, &code, &log.Details, &log.InvoiceID, &log.ClientID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice log: %w", err)
		}
		log.Code = domain.InvoiceState(code)
		if err := parseAudit(createdAt, updatedAt, &log.CreatedAt, &log.UpdatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice logs: %w", err)
	}

	return logs, nil
}

// HasLog reports whether the invoice has a log entry with code
func (r *InvoiceRepo) HasLog(ctx context.Context, invoiceID int64, code domain.InvoiceState) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM invoice_logs WHERE invoice_id = ? AND code = ?)`,
		invoiceID, string(code),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check invoice logs: %w", err)
	}
	return exists, nil
}
