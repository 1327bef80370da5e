package server

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/tailored-agentic-units/spicy/workspace"
)

type workspaceRequest struct {
	Path string `json:"path" binding:"required"`
}

func (s *Server) listFiles(c *gin.Context) {
	files, err := s.workspace.List()
	if err != nil {
		c.JSON(workspaceStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) readFile(c *gin.Context) {
	name := c.Query("file")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	content, err := s.workspace.Read(name)
	if err != nil {
		c.JSON(workspaceStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"file": name, "content": content})
}

func (s *Server) getWorkspace(c *gin.Context) {
	dir, err := s.workspace.Directory()
	if err != nil {
		c.JSON(workspaceStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": dir})
}

func (s *Server) setWorkspace(c *gin.Context) {
	var req workspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.workspace.SetDirectory(req.Path); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dir, _ := s.workspace.Directory()
	c.JSON(http.StatusOK, gin.H{"path": dir})
}

func workspaceStatus(err error) int {
	switch {
	case errors.Is(err, workspace.ErrNoWorkingDirectory):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrOutsideWorkspace):
		return http.StatusForbidden
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
