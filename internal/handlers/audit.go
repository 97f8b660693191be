package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dbelyakov/realvista/internal/services"
	appErrors "github.com/dbelyakov/realvista/pkg/errors"
	"github.com/dbelyakov/realvista/pkg/response"
)

// AuditHandler exposes read access to the security audit log.
type AuditHandler struct {
	service *services.AuditService
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(service *services.AuditService) (*AuditHandler, error) {
	if service == nil {
		return nil, errors.New("audit handler: audit service is required")
	}
	return &AuditHandler{service: service}, nil
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	entries, total, err := h.service.List(c.Request.Context(), services.AuditListOptions{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "per_page", 50),
		AdminID:  c.Query("admin_id"),
		Action:   c.Query("action"),
	})
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, entries, &response.Meta{
		Page:    parseIntQuery(c, "page", 1),
		PerPage: parseIntQuery(c, "per_page", 50),
		Total:   int(total),
	})
}
