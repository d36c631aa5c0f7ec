package api

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) handleListClients(c *gin.Context) {
	clients, err := s.services.Clients.List(c.Request.Context())
	if presentError(c, err) {
		return
	}
	out := make([]*clientDTO, 0, len(clients))
	for _, client := range clients {
		out = append(out, adaptClient(client))
	}
	respond(c, gin.H{"clients": out})
}

func (s *Server) handleCreateClient(c *gin.Context) {
	var req clientRequest
	if !bindData(c, &req) {
		return
	}
	client, err := s.services.Clients.Create(c.Request.Context(), req.input())
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{"client": adaptClient(client)})
}

func (s *Server) handleEditClient(c *gin.Context) {
	var req clientRequest
	if !bindData(c, &req) {
		return
	}
	client, err := s.services.Clients.Edit(c.Request.Context(), req.ID, req.input())
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{"client": adaptClient(client)})
}

func (s *Server) handleDeleteClient(c *gin.Context) {
	var req idRequest
	if !bindData(c, &req) {
		return
	}
	if presentError(c, s.services.Clients.Delete(c.Request.Context(), req.ID)) {
		return
	}
	respond(c, gin.H{"id": req.ID})
}

func (s *Server) handleListServices(c *gin.Context) {
	services, err := s.services.Catalog.List(c.Request.Context())
	if presentError(c, err) {
		return
	}
	out := make([]*serviceDTO, 0, len(services))
	for _, svc := range services {
		out = append(out, adaptService(svc))
	}
	respond(c, gin.H{"services": out})
}

func (s *Server) handleCreateService(c *gin.Context) {
	var req serviceRequest
	if !bindData(c, &req) {
		return
	}
	svc, err := s.services.Catalog.Create(c.Request.Context(), req.input())
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{"service": adaptService(svc)})
}

func (s *Server) handleEditService(c *gin.Context) {
	var req serviceRequest
	if !bindData(c, &req) {
		return
	}
	svc, err := s.services.Catalog.Edit(c.Request.Context(), req.ID, req.input())
	if presentError(c, err) {
		return
	}
	respond(c, gin.H{"service": adaptService(svc)})
}

func (s *Server) handleDeleteService(c *gin.Context) {
	var req idRequest
	if !bindData(c, &req) {
		return
	}
	if presentError(c, s.services.Catalog.Delete(c.Request.Context(), req.ID)) {
		return
	}
	respond(c, gin.H{"id": req.ID})
}
