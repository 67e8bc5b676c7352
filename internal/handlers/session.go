package handlers

import (
	"net/http"
	"strings"

	"github.com/Fn-M/HousingManager/internal/auth"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": auth.MsgBadCredentials})
		return
	}

	name := strings.TrimSpace(req.Name)
	if err := h.Auth.Login(c.ClientIP(), name, req.Password); err != nil {
		h.logger.Warn().Str("name", name).Str("client_ip", c.ClientIP()).Msg("login rejected")
		h.respondError(c, err)
		return
	}

	h.Auth.SetSession(c, name)
	h.logger.Info().Str("name", name).Msg("user logged in")
	c.JSON(http.StatusOK, gin.H{"name": name})
}

func (h *Handler) logout(c *gin.Context) {
	if name, ok := h.Auth.UserFromRequest(c.Request); ok {
		h.Service.CloseView(name)
	}
	h.Auth.ClearSession(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": auth.CurrentUser(c)})
}
