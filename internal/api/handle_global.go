package api

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) handleListHistory(c *gin.Context) {
	var req historyRequest
	if !bindData(c, &req) {
		return
	}
	records, err := s.services.History.List(c.Request.Context(), req.Table, req.ID, req.Limit, req.Offset)
	if presentError(c, err) {
		return
	}
	out := make([]historyDTO, 0, len(records))
	for _, r := range records {
		out = append(out, adaptHistory(r))
	}
	respond(c, gin.H{"history": out})
}

// handleGlobalLoad serves the dashboard of the requested year
func (s *Server) handleGlobalLoad(c *gin.Context) {
	var req yearRequest
	if !bindData(c, &req) {
		return
	}
	dashboard, err := s.services.Reports.Dashboard(c.Request.Context(), req.Year)
	if presentError(c, err) {
		return
	}
	respond(c, adaptDashboard(dashboard))
}
