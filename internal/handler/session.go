package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sofiabaracatlj/fiap-farms/internal/dto"
	"github.com/sofiabaracatlj/fiap-farms/internal/service"
)

type SessionHandler struct{ svc service.SessionService }

func NewSessionHandler(svc service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Status never fails: an unrecoverable session is reported as unauthenticated.
func (h *SessionHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status(c.Request.Context()))
}

func (h *SessionHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Anonymous(c *gin.Context) {
	resp, err := h.svc.Anonymous(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) Logout(c *gin.Context) {
	h.svc.Logout(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) Token(c *gin.Context) {
	token, ok := h.svc.Token(c.Request.Context())
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, dto.TokenResponse{Token: token})
}
