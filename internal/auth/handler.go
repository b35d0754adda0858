package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/examflow/editorial/internal/errorz"
	"github.com/examflow/editorial/internal/models"
	"github.com/examflow/editorial/pkg/response"
	"github.com/examflow/editorial/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register. Reviewer rights and subject access are
// granted by an admin through CreateUserRequest.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role"` // author (default) or typesetter
}

// CreateUserRequest is the body for POST /users (admin only).
type CreateUserRequest struct {
	Email            string  `json:"email" binding:"required,email"`
	Password         string  `json:"password" binding:"required,min=8"`
	FullName         string  `json:"full_name" binding:"required"`
	Role             string  `json:"role" binding:"required"`
	FieldReviewer    bool    `json:"field_reviewer"`
	LanguageReviewer bool    `json:"language_reviewer"`
	TeamID           *int64  `json:"team_id"`
	SubjectIDs       []int64 `json:"subject_ids"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// UserStore is the persistence the auth handlers need.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, p CreateUserParams) (*models.User, error)
	List(ctx context.Context) ([]models.UserPublic, error)
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   UserStore
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo UserStore, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register. Self-registration yields an author or typesetter with no
// reviewer flags and no subject access.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleAuthor
	if req.Role != "" {
		role = models.Role(req.Role)
		if role != models.RoleAuthor && role != models.RoleTypesetter {
			response.BadRequest(c, "invalid role")
			return
		}
	}

	user, err := h.create(c, CreateUserParams{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
	}, req.Password)
	if err != nil {
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// CreateUser handles POST /users (admin only). Any role, reviewer flags and subject access.
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.Role(req.Role)
	if !role.Valid() {
		response.BadRequest(c, "invalid role")
		return
	}
	if role != models.RoleReviewer && (req.FieldReviewer || req.LanguageReviewer) {
		response.BadRequest(c, "reviewer flags require the reviewer role")
		return
	}

	user, err := h.create(c, CreateUserParams{
		Email:            req.Email,
		FullName:         req.FullName,
		Role:             role,
		FieldReviewer:    req.FieldReviewer,
		LanguageReviewer: req.LanguageReviewer,
		TeamID:           req.TeamID,
		SubjectIDs:       req.SubjectIDs,
	}, req.Password)
	if err != nil {
		return
	}
	h.logger.Info("user provisioned", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
	response.Created(c, user.ToPublic())
}

// create checks the email, hashes password and stores the user. On error the response is written.
func (h *Handler) create(c *gin.Context, p CreateUserParams, password string) (*models.User, error) {
	ctx := c.Request.Context()
	if _, err := h.repo.GetByEmail(ctx, p.Email); err == nil {
		err = errorz.NewValidation(map[string]string{"email": "already registered"})
		response.Error(c, err)
		return nil, err
	} else if !errors.Is(err, errorz.ErrNotFound) {
		response.Error(c, err)
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		err = errorz.NewValidation(map[string]string{"password": "must be at most 72 bytes"})
		response.Error(c, err)
		return nil, err
	}
	if err != nil {
		response.Internal(c, "failed to hash password")
		return nil, err
	}
	p.PasswordHash = hash

	user, err := h.repo.Create(ctx, p)
	if err != nil {
		h.logger.Error("create user", zap.String("email", p.Email), zap.Error(err))
		response.Error(c, err)
		return nil, err
	}
	return user, nil
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || !user.Active {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// List handles GET /users (admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
