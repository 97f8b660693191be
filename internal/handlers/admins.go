package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dbelyakov/realvista/internal/accounts"
	iauth "github.com/dbelyakov/realvista/internal/auth"
	"github.com/dbelyakov/realvista/internal/services"
	"github.com/dbelyakov/realvista/pkg/response"
)

// AdminHandler exposes admin account CRUD, manual unlock, and two-factor
// enrollment.
type AdminHandler struct {
	service *accounts.Service
	totp    *iauth.TOTPService
	audit   *services.AuditService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(service *accounts.Service, totp *iauth.TOTPService, audit *services.AuditService) (*AdminHandler, error) {
	if service == nil || totp == nil {
		return nil, errors.New("admin handler: account and totp services are required")
	}
	return &AdminHandler{service: service, totp: totp, audit: audit}, nil
}

type createAdminRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=64"`
	LastName  string `json:"last_name" validate:"max=64"`
}

type updateAdminRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=8"`
	FirstName *string `json:"first_name" validate:"omitempty,max=64"`
	LastName  *string `json:"last_name" validate:"omitempty,max=64"`
}

// POST /api/admins
func (h *AdminHandler) Create(c *gin.Context) {
	var req createAdminRequest
	if !bindAndValidate(c, &req) {
		return
	}

	admin, err := h.service.Create(c.Request.Context(), accounts.CreateAdminInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.Error(c, mapAccountError(err))
		return
	}

	response.Success(c, http.StatusCreated, admin)
}

// GET /api/admins
func (h *AdminHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 20)

	admins, total, err := h.service.List(c.Request.Context(), page, perPage)
	if err != nil {
		response.Error(c, mapAccountError(err))
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, admins, &response.Meta{
		Page:    page,
		PerPage: perPage,
		Total:   int(total),
	})
}

// GET /api/admins/:id
func (h *AdminHandler) Get(c *gin.Context) {
	admin, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, mapAccountError(err))
		return
	}
	response.Success(c, http.StatusOK, admin)
}

// PATCH /api/admins/:id
func (h *AdminHandler) Update(c *gin.Context) {
	var req updateAdminRequest
	if !bindAndValidate(c, &req) {
		return
	}

	admin, err := h.service.Update(c.Request.Context(), c.Param("id"), accounts.UpdateAdminInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.Error(c, mapAccountError(err))
		return
	}

	response.Success(c, http.StatusOK, admin)
}

// DELETE /api/admins/:id
func (h *AdminHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, mapAccountError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/admins/:id/unlock
func (h *AdminHandler) Unlock(c *gin.Context) {
	id := c.Param("id")

	admin, err := h.service.Unlock(c.Request.Context(), id)
	if err != nil {
		response.Error(c, mapAccountError(err))
		return
	}

	h.auditEvent(c, services.AuditActionUnlock, &id, "success")
	response.Success(c, http.StatusOK, admin)
}

// POST /api/admins/:id/2fa/enroll
func (h *AdminHandler) EnrollTwoFactor(c *gin.Context) {
	id := c.Param("id")

	enrollment, err := h.totp.Enroll(c.Request.Context(), id)
	if err != nil {
		response.Error(c, mapAccountError(err))
		return
	}

	h.auditEvent(c, services.AuditActionTwoFactorEnroll, &id, "success")

	// QRPNG serializes as base64, ready for a data URI on the client.
	response.Success(c, http.StatusOK, gin.H{
		"secret":      enrollment.Secret,
		"otpauth_url": enrollment.URL,
		"qr_png":      enrollment.QRPNG,
	})
}

func (h *AdminHandler) auditEvent(c *gin.Context, action string, adminID *string, result string) {
	if h.audit == nil {
		return
	}

	_ = h.audit.Log(c.Request.Context(), services.AuditEntry{
		AdminID:   adminID,
		Action:    action,
		Result:    result,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
}
