package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"collections-review-backend/internal/apperrors"
	"collections-review-backend/internal/models"
	"collections-review-backend/internal/repository"
	"collections-review-backend/internal/services/assignment"
	"collections-review-backend/internal/services/ingestion"
	"collections-review-backend/internal/services/query"
	"collections-review-backend/internal/services/review"
)

type RecordsHandler struct {
	ingest *ingestion.Service
	review *review.Service
	query  *query.Service
	engine *assignment.Engine
}

func NewRecordsHandler(ingest *ingestion.Service, rev *review.Service, qry *query.Service, engine *assignment.Engine) *RecordsHandler {
	return &RecordsHandler{ingest: ingest, review: rev, query: qry, engine: engine}
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindPermission:
		status = http.StatusForbidden
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindUpstream:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *RecordsHandler) Submit(c *gin.Context) {
	var payload ingestion.SubmitPayload
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cuerpo de la solicitud inválido"})
		return
	}
	id, loc, err := h.ingest.Submit(c.Request.Context(), payload, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"record_id": id,
		"locator":   loc.String(),
	})
}

func (h *RecordsHandler) List(c *gin.Context) {
	filters := query.Filters{
		Status: c.Query("status"),
		Branch: c.Query("branch"),
	}
	views, err := h.query.ListForReviewer(c.Request.Context(), actorFrom(c), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": views, "count": len(views)})
}

func (h *RecordsHandler) UpdateStatus(c *gin.Context) {
	loc, err := repository.ParseLocator(c.Param("locator"))
	if err != nil {
		respondError(c, apperrors.NotFound("localizador inválido"))
		return
	}
	var payload struct {
		Status  string `json:"status"`
		Comment string `json:"comment"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cuerpo de la solicitud inválido"})
		return
	}
	err = h.review.UpdateStatus(c.Request.Context(), loc, models.ReviewStatus(payload.Status), payload.Comment, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "estado actualizado"})
}

func (h *RecordsHandler) Delete(c *gin.Context) {
	loc, err := repository.ParseLocator(c.Param("locator"))
	if err != nil {
		respondError(c, apperrors.NotFound("localizador inválido"))
		return
	}
	if err := h.ingest.Delete(c.Request.Context(), loc, actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "registro eliminado"})
}

func (h *RecordsHandler) AuditTrail(c *gin.Context) {
	loc, err := repository.ParseLocator(c.Param("locator"))
	if err != nil {
		respondError(c, apperrors.NotFound("localizador inválido"))
		return
	}
	entries, err := h.review.AuditTrail(c.Request.Context(), loc, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// RunAssignments lets an admin force a pass instead of waiting for the
// next list call to trigger one.
func (h *RecordsHandler) RunAssignments(c *gin.Context) {
	if !actorFrom(c).IsAdmin() {
		respondError(c, apperrors.Permission("Solo un administrador puede forzar una pasada de asignación."))
		return
	}
	result := h.engine.TryRun(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"result": result.String()})
}

func (h *RecordsHandler) LastUpdate(c *gin.Context) {
	last, err := h.ingest.LastUpdate(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if last.IsZero() {
		c.JSON(http.StatusOK, gin.H{"last_update": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"last_update": last.Format(time.RFC3339Nano)})
}
