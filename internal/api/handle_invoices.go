package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/repository"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleListInvoices(c *gin.Context) {
	var req invoiceListRequest
	if !bindData(c, &req) {
		return
	}

	filter := repository.InvoiceFilter{
		IncludeArchived: req.IncludeArchived,
		Year:            req.Year,
		Limit:           req.Limit,
		WithLines:       true,
	}
	if req.ClientID > 0 {
		filter.ClientID = &req.ClientID
	}
	if req.State != "" {
		state, err := domain.ParseInvoiceState(req.State)
		if presentError(c, err) {
			return
		}
		filter.State = &state
	}

	invoices, err := s.services.Invoices.List(c.Request.Context(), filter)
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{"invoices": adaptInvoices(invoices)})
}

func (s *Server) handleGetInvoice(c *gin.Context) {
	var req idRequest
	if !bindData(c, &req) {
		return
	}
	invoice, err := s.services.Invoices.Get(c.Request.Context(), req.ID)
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{"invoice": adaptInvoice(invoice)})
}

func (s *Server) handleCreateInvoice(c *gin.Context) {
	var req invoiceRequest
	if !bindData(c, &req) {
		return
	}
	invoice, err := s.services.Invoices.Create(c.Request.Context(), req.input())
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{"invoice": adaptInvoice(invoice)})
}

func (s *Server) handleEditInvoice(c *gin.Context) {
	var req invoiceRequest
	if !bindData(c, &req) {
		return
	}
	if req.ID <= 0 {
		fail(c, CodeInvalidRequest, "Missing required fields", []string{"ID:required"})
		return
	}
	invoice, err := s.services.Invoices.Update(c.Request.Context(), req.ID, req.input())
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{"invoice": adaptInvoice(invoice)})
}

func (s *Server) handleDeleteInvoice(c *gin.Context) {
	var req idRequest
	if !bindData(c, &req) {
		return
	}
	if presentError(c, s.services.Invoices.Delete(c.Request.Context(), req.ID)) {
		return
	}
	respond(c, gin.H{"id": req.ID})
}

func (s *Server) handleInvoiceState(c *gin.Context) {
	var req invoiceStateRequest
	if !bindData(c, &req) {
		return
	}
	state, err := domain.ParseInvoiceState(req.State)
	if presentError(c, err) {
		return
	}
	invoice, err := s.services.Invoices.ChangeState(c.Request.Context(), req.ID, state)
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{"invoice": adaptInvoice(invoice)})
}

func (s *Server) handleGenerateInvoice(c *gin.Context) {
	var req idRequest
	if !bindData(c, &req) {
		return
	}
	generated, err := s.services.Invoices.Generate(c.Request.Context(), req.ID)
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{
		"invoice": adaptInvoice(generated.Invoice),
		"total":   money(generated.Total),
		"path":    generated.Path,
	})
}

func (s *Server) handleInvoiceLogs(c *gin.Context) {
	var req idRequest
	if !bindData(c, &req) {
		return
	}
	logs, err := s.services.Invoices.Logs(c.Request.Context(), req.ID)
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{"logs": adaptInvoiceLogs(logs)})
}

func (s *Server) handleExportInvoices(c *gin.Context) {
	var req yearRequest
	if !bindData(c, &req) {
		return
	}
	var buf bytes.Buffer
	if presentError(c, s.services.Invoices.Export(c.Request.Context(), req.Year, &buf)) {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="invoices_%d.xlsx"`, req.Year))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
