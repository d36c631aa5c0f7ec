package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/history"
	"github.com/andy/invoicer/internal/service"
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/guregu/null/v5"
)

var registerValidators sync.Once

// setupValidators adds the enum validators to gin's validator engine
func setupValidators() {
	registerValidators.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("invoicestate", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseInvoiceState(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("servicetype", func(fl validator.FieldLevel) bool {
			return domain.ServiceType(fl.Field().String()).Valid()
		})
	})
}

// validationDetails lists the failing fields of a binding error
func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s:%s", fe.Field(), fe.Tag()))
	}
	return fields
}

// Requests

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type idRequest struct {
	ID int64 `json:"id" binding:"required,gt=0"`
}

type clientRequest struct {
	ID            int64  `json:"id"`
	Name          string `json:"name" binding:"required"`
	Firstname     string `json:"firstname" binding:"required"`
	Lastname      string `json:"lastname" binding:"required"`
	Email         string `json:"email" binding:"omitempty,email"`
	PhoneNumber   string `json:"phoneNumber"`
	Remark        string `json:"remark"`
	Address       string `json:"address"`
	AddressNumber string `json:"addressNumber"`
	PostalCode    string `json:"postalCode"`
	City          string `json:"city"`
}

func (r clientRequest) input() service.ClientInput {
	return service.ClientInput{
		Name:          r.Name,
		Firstname:     r.Firstname,
		Lastname:      r.Lastname,
		Email:         r.Email,
		PhoneNumber:   r.PhoneNumber,
		Remark:        r.Remark,
		Address:       r.Address,
		AddressNumber: r.AddressNumber,
		PostalCode:    r.PostalCode,
		City:          r.City,
	}
}

type serviceRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required,servicetype"`
}

func (r serviceRequest) input() service.ServiceInput {
	return service.ServiceInput{
		Name:        r.Name,
		Description: r.Description,
		Type:        domain.ServiceType(r.Type),
	}
}

type invoiceLineRequest struct {
	ServiceID int64   `json:"serviceId" binding:"required,gt=0"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	Amount    float64 `json:"amount" binding:"gte=0"`
}

type invoiceRequest struct {
	ID       int64                `json:"id"`
	Name     string               `json:"name" binding:"required"`
	ClientID int64                `json:"clientId" binding:"required,gt=0"`
	DueAt    *time.Time           `json:"dueAt"`
	Lines    []invoiceLineRequest `json:"services" binding:"omitempty,dive"`
}

func (r invoiceRequest) input() service.InvoiceInput {
	in := service.InvoiceInput{
		Name:     r.Name,
		ClientID: r.ClientID,
		DueAt:    null.TimeFromPtr(r.DueAt),
	}
	if r.Lines != nil {
		in.Lines = make([]service.InvoiceLineInput, 0, len(r.Lines))
		for _, l := range r.Lines {
			in.Lines = append(in.Lines, service.InvoiceLineInput{
				ServiceID: l.ServiceID,
				Quantity:  l.Quantity,
				Amount:    l.Amount,
			})
		}
	}
	return in
}

type invoiceListRequest struct {
	ClientID        int64  `json:"clientId" binding:"gte=0"`
	State           string `json:"state" binding:"omitempty,invoicestate"`
	IncludeArchived bool   `json:"includeArchived"`
	Year            int    `json:"year" binding:"gte=0"`
	Limit           uint64 `json:"limit"`
}

type invoiceStateRequest struct {
	ID    int64  `json:"id" binding:"required,gt=0"`
	State string `json:"state" binding:"required,invoicestate"`
}

type yearRequest struct {
	Year int `json:"year" binding:"required,gt=0"`
}

type historyRequest struct {
	Table  string `json:"table" binding:"required"`
	ID     int64  `json:"id" binding:"required,gt=0"`
	Limit  uint64 `json:"limit"`
	Offset uint64 `json:"offset"`
}

// Responses

type userDTO struct {
	ID              int64      `json:"id"`
	Firstname       string     `json:"firstname"`
	Lastname        string     `json:"lastname"`
	Email           string     `json:"email"`
	LastConnexionAt *time.Time `json:"lastConnexionAt"`
}

func adaptUser(u *domain.User) userDTO {
	return userDTO{
		ID:              u.ID,
		Firstname:       u.Firstname,
		Lastname:        u.Lastname,
		Email:           u.Email,
		LastConnexionAt: u.LastConnexionAt.Ptr(),
	}
}

type clientDTO struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Firstname     string    `json:"firstname"`
	Lastname      string    `json:"lastname"`
	Email         *string   `json:"email"`
	PhoneNumber   *string   `json:"phoneNumber"`
	Remark        *string   `json:"remark"`
	Address       *string   `json:"address"`
	AddressNumber *string   `json:"addressNumber"`
	PostalCode    *string   `json:"postalCode"`
	City          *string   `json:"city"`
	Archived      bool      `json:"archived"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func adaptClient(c *domain.Client) *clientDTO {
	if c == nil {
		return nil
	}
	return &clientDTO{
		ID:            c.ID,
		Name:          c.Name,
		Firstname:     c.Firstname,
		Lastname:      c.Lastname,
		Email:         c.Email.Ptr(),
		PhoneNumber:   c.PhoneNumber.Ptr(),
		Remark:        c.Remark.Ptr(),
		Address:       c.Address.Ptr(),
		AddressNumber: c.AddressNumber.Ptr(),
		PostalCode:    c.PostalCode.Ptr(),
		City:          c.City.Ptr(),
		Archived:      c.Archived,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type serviceDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func adaptService(s *domain.Service) *serviceDTO {
	if s == nil {
		return nil
	}
	return &serviceDTO{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Type:        string(s.Type),
		Archived:    s.Archived,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type invoiceLineDTO struct {
	ID        int64       `json:"id"`
	ServiceID int64       `json:"serviceId"`
	Quantity  float64     `json:"quantity"`
	Amount    float64     `json:"amount"`
	Total     string      `json:"total"`
	Service   *serviceDTO `json:"service"`
}

type invoiceLogDTO struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Details   string    `json:"details"`
	InvoiceID int64     `json:"invoiceId"`
	ClientID  int64     `json:"clientId"`
	CreatedAt time.Time `json:"createdAt"`
}

func adaptInvoiceLog(l *domain.InvoiceLog) invoiceLogDTO {
	return invoiceLogDTO{
		ID:        l.ID,
		Code:      l.Code.String(),
		Details:   l.Details,
		InvoiceID: l.InvoiceID,
		ClientID:  l.ClientID,
		CreatedAt: l.CreatedAt,
	}
}

func adaptInvoiceLogs(logs []*domain.InvoiceLog) []invoiceLogDTO {
	out := make([]invoiceLogDTO, 0, len(logs))
	for _, l := range logs {
		out = append(out, adaptInvoiceLog(l))
	}
	return out
}

type invoiceDTO struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Number    string           `json:"number"`
	Reference string           `json:"reference"`
	State     string           `json:"state"`
	Archived  bool             `json:"archived"`
	DueAt     *time.Time       `json:"dueAt"`
	ClientID  int64            `json:"clientId"`
	Client    *clientDTO       `json:"client"`
	Amount    string           `json:"amount"`
	Services  []invoiceLineDTO `json:"services"`
	Logs      []invoiceLogDTO  `json:"logs"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func adaptInvoice(inv *domain.Invoice) invoiceDTO {
	lines := make([]invoiceLineDTO, 0, len(inv.Lines))
	for _, l := range inv.ActiveLines() {
		lines = append(lines, invoiceLineDTO{
			ID:        l.ID,
			ServiceID: l.ServiceID,
			Quantity:  l.Quantity,
			Amount:    l.Amount,
			Total:     money(l.Total()),
			Service:   adaptService(l.Service),
		})
	}
	return invoiceDTO{
		ID:        inv.ID,
		Name:      inv.Name,
		Number:    inv.Number,
		Reference: inv.Reference,
		State:     inv.State.String(),
		Archived:  inv.Archived,
		DueAt:     inv.DueAt.Ptr(),
		ClientID:  inv.ClientID,
		Client:    adaptClient(inv.Client),
		Amount:    money(inv.Total()),
		Services:  lines,
		Logs:      adaptInvoiceLogs(inv.Logs),
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}

func adaptInvoices(invoices []*domain.Invoice) []invoiceDTO {
	out := make([]invoiceDTO, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, adaptInvoice(inv))
	}
	return out
}

type historyDTO struct {
	ID        int64          `json:"id"`
	Table     string         `json:"table"`
	TableID   int64          `json:"tableId"`
	Kind      string         `json:"kind"`
	Value     map[string]any `json:"value"`
	Changes   map[string]any `json:"changes"`
	UserID    int64          `json:"userId"`
	CreatedAt time.Time      `json:"createdAt"`
}

func adaptHistory(r *history.Record) historyDTO {
	return historyDTO{
		ID:        r.ID,
		Table:     r.Table,
		TableID:   r.TableID,
		Kind:      string(r.Kind),
		Value:     r.Value,
		Changes:   r.Changes,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
	}
}

type dashboardDTO struct {
	ClientsNumber  int          `json:"clientsNumber"`
	ServicesNumber int          `json:"servicesNumber"`
	InvoicesNumber int          `json:"invoicesNumber"`
	TotalCA        revenue      `json:"totalCA"`
	BestMonth      *monthDTO    `json:"bestMonth"`
	BestYear       *yearDTO     `json:"bestYear"`
	BestClient     *clientDTO   `json:"bestClient"`
	Years          []int        `json:"years"`
	Invoices       []invoiceDTO `json:"invoices"`
}

type revenue struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

type monthDTO struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Value float64 `json:"value"`
}

type yearDTO struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

func adaptDashboard(d *service.Dashboard) dashboardDTO {
	out := dashboardDTO{
		ClientsNumber:  d.ClientsNumber,
		ServicesNumber: d.ServicesNumber,
		InvoicesNumber: d.InvoicesNumber,
		TotalCA:        revenue{Labels: d.Revenue.Labels, Values: d.Revenue.Values},
		BestClient:     adaptClient(d.BestClient),
		Years:          d.Years,
		Invoices:       adaptInvoices(d.Invoices),
	}
	if d.BestMonth != nil {
		out.BestMonth = &monthDTO{Year: d.BestMonth.Year, Month: int(d.BestMonth.Month), Value: d.BestMonth.Value}
	}
	if d.BestYear != nil {
		out.BestYear = &yearDTO{Year: d.BestYear.Year, Value: d.BestYear.Value}
	}
	return out
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
