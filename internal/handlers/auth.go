package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dbelyakov/realvista/internal/accounts"
	iauth "github.com/dbelyakov/realvista/internal/auth"
	"github.com/dbelyakov/realvista/internal/middleware"
	"github.com/dbelyakov/realvista/internal/services"
	appErrors "github.com/dbelyakov/realvista/pkg/errors"
	"github.com/dbelyakov/realvista/pkg/metrics"
	"github.com/dbelyakov/realvista/pkg/response"
)

// AuthHandler manages the login and second-factor verification flows.
type AuthHandler struct {
	login    *iauth.LoginService
	totp     *iauth.TOTPService
	accounts *accounts.Service
	audit    *services.AuditService
}

// NewAuthHandler wires the authentication flows together.
func NewAuthHandler(login *iauth.LoginService, totp *iauth.TOTPService, accountSvc *accounts.Service, audit *services.AuditService) (*AuthHandler, error) {
	if login == nil || totp == nil || accountSvc == nil {
		return nil, errors.New("auth handler: login, totp and account services are required")
	}
	return &AuthHandler{login: login, totp: totp, accounts: accountSvc, audit: audit}, nil
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyTwoFactorRequest struct {
	AdminID string `json:"admin_id" validate:"required"`
	Code    string `json:"code" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.login.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.rejectLogin(c, req.Email, err)
		return
	}

	if result.PendingTwoFactor {
		metrics.AuthAttempts.WithLabelValues("pending_2fa").Inc()
		h.auditLogin(c, result.Admin.ID, req.Email, "pending_2fa", nil)
		response.Success(c, http.StatusOK, gin.H{
			"pending_two_factor": true,
			"admin_id":           result.Admin.ID,
		})
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	h.auditLogin(c, result.Admin.ID, req.Email, "success", nil)

	response.Success(c, http.StatusOK, gin.H{
		"token": result.Token,
		"admin": result.Admin,
	})
}

// POST /api/auth/2fa/verify
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	var req verifyTwoFactorRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.totp.Verify(c.Request.Context(), req.AdminID, req.Code); err != nil {
		switch {
		case errors.Is(err, iauth.ErrTwoFactorNotEnrolled), errors.Is(err, accounts.ErrNotFound):
			metrics.TwoFactorVerifications.WithLabelValues("failure").Inc()
			response.Error(c, appErrors.ErrNotFound)
		case errors.Is(err, iauth.ErrInvalidTwoFactorCode):
			metrics.TwoFactorVerifications.WithLabelValues("failure").Inc()
			h.auditEvent(c, services.AuditActionTwoFactorVerify, &req.AdminID, "", "failure", nil)
			response.Error(c, appErrors.ErrTwoFactorInvalid)
		default:
			response.Error(c, mapAccountError(err))
		}
		return
	}

	metrics.TwoFactorVerifications.WithLabelValues("success").Inc()
	h.auditEvent(c, services.AuditActionTwoFactorVerify, &req.AdminID, "", "success", nil)

	token, err := h.login.IssueToken(req.AdminID)
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	admin, err := h.accounts.GetByID(c.Request.Context(), req.AdminID)
	if err != nil {
		response.Error(c, mapAccountError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"admin": admin,
	})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	v, ok := c.Get(middleware.CtxAdminIDKey)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	adminID, _ := v.(string)

	admin, err := h.accounts.GetByID(c.Request.Context(), adminID)
	if err != nil {
		response.Error(c, mapAccountError(err))
		return
	}

	response.Success(c, http.StatusOK, admin)
}

func (h *AuthHandler) rejectLogin(c *gin.Context, email string, err error) {
	var locked *iauth.LockedError

	switch {
	case errors.As(err, &locked):
		if locked.JustLocked {
			metrics.AccountLockouts.Inc()
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			h.auditEvent(c, services.AuditActionLockout, nil, email, "locked", gin.H{"until": locked.Until})
			response.Error(c, appErrors.NewJustLocked())
			return
		}
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		h.auditLogin(c, "", email, "locked", gin.H{"minutes_remaining": locked.Remaining})
		response.Error(c, appErrors.NewLocked(locked.Remaining))
	case errors.Is(err, iauth.ErrInvalidCredentials):
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		h.auditLogin(c, "", email, "failure", nil)
		response.Error(c, appErrors.ErrInvalidCredentials)
	case accounts.IsStoreError(err):
		response.Error(c, appErrors.ErrServiceUnavailable.WithInternal(err))
	default:
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
	}
}

func (h *AuthHandler) auditLogin(c *gin.Context, adminID, email, result string, metadata map[string]any) {
	var idRef *string
	if adminID != "" {
		idRef = &adminID
	}
	h.auditEvent(c, services.AuditActionLogin, idRef, email, result, metadata)
}

func (h *AuthHandler) auditEvent(c *gin.Context, action string, adminID *string, email, result string, metadata map[string]any) {
	if h.audit == nil {
		return
	}

	// Audit is best-effort; a failed write must not change the auth outcome.
	_ = h.audit.Log(c.Request.Context(), services.AuditEntry{
		AdminID:   adminID,
		Email:     email,
		Action:    action,
		Result:    result,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Metadata:  metadata,
	})
}
