package handlers

import (
	"net/http"

	"rental-portal/internal/accounts"
	"rental-portal/internal/auth"
	"rental-portal/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccountHandler serves registration, profiles and admin account actions
type AccountHandler struct {
	accounts *accounts.Service
	tokens   *auth.TokenService
	log      *zap.Logger
}

// NewAccountHandler creates an account handler
func NewAccountHandler(svc *accounts.Service, tokens *auth.TokenService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{accounts: svc, tokens: tokens, log: log}
}

// Register creates a tenant or landlord account and returns a bearer token.
// Administrators are created from the command line.
func (h *AccountHandler) Register(c *gin.Context) {
	var in accounts.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	if role, _ := models.ParseRole(string(in.Role)); role == models.RoleAdmin {
		badRequest(c, "administrator accounts cannot be self-registered")
		return
	}

	identity, err := h.accounts.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	token, err := h.tokens.GenerateToken(identity.ID, identity.Username, string(identity.Role))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"identity": identity, "token": token})
}

// Me returns the caller's identity with its profile
func (h *AccountHandler) Me(c *gin.Context) {
	actor := auth.ActorFrom(c)
	identity, err := h.accounts.Get(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	resp := gin.H{"identity": identity}
	if identity.Role != models.RoleAdmin {
		profile, err := h.accounts.EnsureProfile(c.Request.Context(), identity.ID)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		resp["profile"] = profile
	}
	c.JSON(http.StatusOK, resp)
}

// List returns accounts, optionally filtered by ?role=
func (h *AccountHandler) List(c *gin.Context) {
	var role models.Role
	if q := c.Query("role"); q != "" {
		r, ok := models.ParseRole(q)
		if !ok {
			badRequest(c, "invalid role "+q)
			return
		}
		role = r
	}
	identities, err := h.accounts.List(c.Request.Context(), auth.ActorFrom(c), role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": identities, "count": len(identities)})
}

func (h *AccountHandler) UpdateLandlordProfile(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in accounts.LandlordProfileInput
	if !bindJSON(c, &in) {
		return
	}
	profile, err := h.accounts.UpdateLandlordProfile(c.Request.Context(), auth.ActorFrom(c), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *AccountHandler) UpdateTenantProfile(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in accounts.TenantProfileInput
	if !bindJSON(c, &in) {
		return
	}
	profile, err := h.accounts.UpdateTenantProfile(c.Request.Context(), auth.ActorFrom(c), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type verifyRequest struct {
	Status models.VerificationStatus `json:"status" binding:"required"`
	Notes  string                    `json:"notes"`
}

func (h *AccountHandler) Verify(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}
	identity, err := h.accounts.Verify(c.Request.Context(), auth.ActorFrom(c), id, req.Status, req.Notes)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

type statusRequest struct {
	Status models.IdentityStatus `json:"status" binding:"required"`
}

func (h *AccountHandler) SetStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	identity, err := h.accounts.SetStatus(c.Request.Context(), auth.ActorFrom(c), id, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}
