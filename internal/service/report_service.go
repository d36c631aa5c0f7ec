package service

import (
	"context"
	"sort"
	"time"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
)

// MonthlyRevenue is the cumulative net revenue at the end of each month of a year
type MonthlyRevenue struct {
	Labels []string
	Values []float64
}

type BestMonth struct {
	Year  int
	Month time.Month
	Value float64
}

type BestYear struct {
	Year  int
	Value float64
}

// Dashboard aggregates the back-office home screen
type Dashboard struct {
	ClientsNumber  int
	ServicesNumber int
	InvoicesNumber int // sent, not archived
	Revenue        MonthlyRevenue
	BestMonth      *BestMonth
	BestYear       *BestYear
	BestClient     *domain.Client
	Years          []int
	Invoices       []*domain.Invoice // latest three
}

// ReportService provides aggregations over invoices
type ReportService interface {
	Dashboard(ctx context.Context, year int) (*Dashboard, error)
}

type reportService struct {
	clientRepo      repository.ClientRepository
	serviceRepo     repository.ServiceRepository
	invoiceRepo     repository.InvoiceRepository
	passiveClientID int64
}

// NewReportService creates a new report service. Invoices of passiveClientID
// are expenses and count negatively.
func NewReportService(
	clientRepo repository.ClientRepository,
	serviceRepo repository.ServiceRepository,
	invoiceRepo repository.InvoiceRepository,
	passiveClientID int64,
) ReportService {
	return &reportService{
		clientRepo:      clientRepo,
		serviceRepo:     serviceRepo,
		invoiceRepo:     invoiceRepo,
		passiveClientID: passiveClientID,
	}
}

func (s *reportService) Dashboard(ctx context.Context, year int) (*Dashboard, error) {
	if year <= 0 {
		return nil, domain.BadParameterf("year is required")
	}

	var (
		d   = &Dashboard{}
		err error
	)
	if d.ClientsNumber, err = s.clientRepo.Count(ctx); err != nil {
		return nil, err
	}
	if d.ServicesNumber, err = s.serviceRepo.Count(ctx); err != nil {
		return nil, err
	}
	if d.InvoicesNumber, err = s.invoiceRepo.Count(ctx, domain.InvoiceStateSent); err != nil {
		return nil, err
	}

	invoices, err := s.invoiceRepo.List(ctx, repository.InvoiceFilter{Newest: true, WithLines: true})
	if err != nil {
		return nil, err
	}

	d.Revenue = s.cumulativeRevenue(invoices, year)
	d.BestMonth = s.bestMonth(invoices)
	d.BestYear = s.bestYear(invoices)
	d.BestClient = s.bestClient(invoices)

	if d.Years, err = s.invoiceRepo.Years(ctx); err != nil {
		return nil, err
	}

	if len(invoices) > 3 {
		d.Invoices = invoices[:3]
	} else {
		d.Invoices = invoices
	}
	return d, nil
}

// net is the signed contribution of an invoice
func (s *reportService) net(inv *domain.Invoice) float64 {
	if inv.ClientID == s.passiveClientID {
		return -inv.Total()
	}
	return inv.Total()
}

func (s *reportService) cumulativeRevenue(invoices []*domain.Invoice, year int) MonthlyRevenue {
	var monthly [12]float64
	for _, inv := range invoices {
		created := inv.CreatedAt.UTC()
		if created.Year() != year {
			continue
		}
		monthly[created.Month()-1] += s.net(inv)
	}

	rev := MonthlyRevenue{Labels: make([]string, 12), Values: make([]float64, 12)}
	total := 0.0
	for i := 0; i < 12; i++ {
		total += monthly[i]
		rev.Labels[i] = time.Month(i + 1).String()
		rev.Values[i] = total
	}
	return rev
}

func (s *reportService) bestMonth(invoices []*domain.Invoice) *BestMonth {
	totals := make(map[int]float64) // year*100 + month
	for _, inv := range invoices {
		created := inv.CreatedAt.UTC()
		totals[created.Year()*100+int(created.Month())] += s.net(inv)
	}

	var best *BestMonth
	for _, key := range sortedKeys(totals) {
		if best == nil || totals[key] > best.Value {
			best = &BestMonth{Year: key / 100, Month: time.Month(key % 100), Value: totals[key]}
		}
	}
	return best
}

func (s *reportService) bestYear(invoices []*domain.Invoice) *BestYear {
	totals := make(map[int]float64)
	for _, inv := range invoices {
		totals[inv.CreatedAt.UTC().Year()] += s.net(inv)
	}

	var best *BestYear
	for _, year := range sortedKeys(totals) {
		if best == nil || totals[year] > best.Value {
			best = &BestYear{Year: year, Value: totals[year]}
		}
	}
	return best
}

func (s *reportService) bestClient(invoices []*domain.Invoice) *domain.Client {
	totals := make(map[int64]float64)
	clients := make(map[int64]*domain.Client)
	for _, inv := range invoices {
		if inv.ClientID == s.passiveClientID {
			continue
		}
		totals[inv.ClientID] += inv.Total()
		if inv.Client != nil {
			clients[inv.ClientID] = inv.Client
		}
	}

	ids := make([]int64, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var bestID int64
	bestValue := 0.0
	for _, id := range ids {
		if bestID == 0 || totals[id] > bestValue {
			bestID, bestValue = id, totals[id]
		}
	}
	if bestID == 0 {
		return nil
	}
	return clients[bestID]
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
