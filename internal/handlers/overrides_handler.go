package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collections-review-backend/internal/services/overrides"
)

type OverridesHandler struct {
	service *overrides.Service
}

func NewOverridesHandler(s *overrides.Service) *OverridesHandler {
	return &OverridesHandler{service: s}
}

func (h *OverridesHandler) List(c *gin.Context) {
	rules, err := h.service.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rules})
}

func (h *OverridesHandler) Add(c *gin.Context) {
	var payload struct {
		VendorCode string `json:"vendor_code"`
		Reviewer   string `json:"reviewer"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cuerpo de la solicitud inválido"})
		return
	}
	if err := h.service.Add(c.Request.Context(), payload.VendorCode, payload.Reviewer, actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "regla guardada"})
}

func (h *OverridesHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), c.Param("vendor"), actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "regla eliminada"})
}
