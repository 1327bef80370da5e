package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tailored-agentic-units/spicy/core/protocol"
	"github.com/tailored-agentic-units/spicy/memory"
)

func (s *Server) listSessions(c *gin.Context) {
	document, ok := requireQuery(c, "file")
	if !ok {
		return
	}

	sessions, err := s.store.List(c.Request.Context(), document)
	if err != nil {
		c.JSON(storeStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, protocol.SessionIndex{Sessions: sessions})
}

func (s *Server) saveSession(c *gin.Context) {
	document, ok := requireQuery(c, "file")
	if !ok {
		return
	}

	var session protocol.SessionData
	if err := c.ShouldBindJSON(&session); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.Save(c.Request.Context(), document, session); err != nil {
		c.JSON(storeStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) loadSession(c *gin.Context) {
	document, ok := requireQuery(c, "file")
	if !ok {
		return
	}
	id, ok := requireQuery(c, "id")
	if !ok {
		return
	}

	session, err := s.store.Load(c.Request.Context(), document, id)
	if err != nil {
		c.JSON(storeStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) deleteSession(c *gin.Context) {
	document, ok := requireQuery(c, "file")
	if !ok {
		return
	}
	id, ok := requireQuery(c, "id")
	if !ok {
		return
	}

	if err := s.store.Delete(c.Request.Context(), document, id); err != nil {
		c.JSON(storeStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func requireQuery(c *gin.Context, key string) (string, bool) {
	value := c.Query(key)
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": key + " is required"})
		return "", false
	}
	return value, true
}

func storeStatus(err error) int {
	switch {
	case errors.Is(err, memory.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, memory.ErrInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
