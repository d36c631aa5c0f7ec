package api

import (
	"github.com/andy/invoicer/internal/service"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bindData(c, &req) {
		return
	}

	session, err := s.services.Auth.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if presentError(c, err) {
		return
	}

	respond(c, gin.H{
		"user":  adaptUser(session.User),
		"token": session.Token,
	})
}
