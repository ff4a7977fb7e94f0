package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"csrhub/internal/auth"
	"csrhub/internal/config"
	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type RegisterRequest struct {
	Username       string `json:"username" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone" binding:"required"`
	Password       string `json:"password" binding:"required,min=6"`
	Role           string `json:"role" binding:"required,oneof=NGO CORPORATE"`
	OrgName        string `json:"org_name" binding:"required"`
	RegistrationNo string `json:"registration_no"` // NGO registration number or corporate CIN
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Role        string    `json:"role"`
	NGOID       *string   `json:"ngo_id,omitempty"`
	CorporateID *string   `json:"corporate_id,omitempty"`
	OrgName     string    `json:"org_name,omitempty"`
	CreatedAt   string    `json:"created_at"`
}

// UserService covers registration and the token lifecycle
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	CreateAdmin(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetMe(ctx context.Context, actor auth.Actor) (*UserResponse, error)
}

type userService struct {
	tm         repository.TransactionManager
	repo       repository.UserRepository
	ngos       repository.NGORepository
	corporates repository.CorporateRepository
	audit      repository.AuditRepository
	cfg        config.AuthConfig
	log        *zap.Logger
}

// NewUserService returns a new instance of UserService
func NewUserService(
	tm repository.TransactionManager,
	repo repository.UserRepository,
	ngos repository.NGORepository,
	corporates repository.CorporateRepository,
	audit repository.AuditRepository,
	cfg config.AuthConfig,
	log *zap.Logger,
) UserService {
	return &userService{tm: tm, repo: repo, ngos: ngos, corporates: corporates, audit: audit, cfg: cfg, log: log}
}

// Helper: parse model to standard json API response
func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(timeLayout),
	}
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	if req.Role != model.RoleNGO && req.Role != model.RoleCorporate {
		return nil, apperror.Validation("invalid role: must be NGO or CORPORATE")
	}
	if strings.TrimSpace(req.OrgName) == "" {
		return nil, apperror.Validation("org_name is required")
	}
	return s.create(ctx, req)
}

// CreateAdmin bootstraps an administrator. The route is only mounted outside release mode.
func (s *userService) CreateAdmin(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	req.Role = model.RoleAdmin
	return s.create(ctx, req)
}

func (s *userService) create(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Double check username/email uniqueness via repo directly
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperror.Conflict("username already exists")
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperror.Conflict("email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err, "failed to hash password")
	}

	user := &model.User{
		ID:       uuid.New(),
		Username: req.Username,
		Email:    email,
		Phone:    req.Phone,
		Password: string(hashedPassword),
		Role:     req.Role,
	}
	res := mapToResponse(user)

	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			return apperror.Internal(err, "failed to create user")
		}

		switch user.Role {
		case model.RoleNGO:
			ngo := &model.NGO{ID: uuid.New(), UserID: user.ID, OrgName: strings.TrimSpace(req.OrgName), RegistrationNo: req.RegistrationNo}
			if err := s.ngos.Create(txCtx, ngo); err != nil {
				return apperror.Internal(err, "failed to create NGO profile")
			}
			id := ngo.ID.String()
			res.NGOID, res.OrgName = &id, ngo.OrgName
		case model.RoleCorporate:
			corp := &model.Corporate{ID: uuid.New(), UserID: user.ID, CompanyName: strings.TrimSpace(req.OrgName), CIN: req.RegistrationNo}
			if err := s.corporates.Create(txCtx, corp); err != nil {
				return apperror.Internal(err, "failed to create corporate profile")
			}
			id := corp.ID.String()
			res.CorporateID, res.OrgName = &id, corp.CompanyName
		}

		return writeAudit(txCtx, s.audit, &user.ID, model.ActionRegisterUser, user.ID.String(), user.Username, map[string]interface{}{
			"role": user.Role,
		})
	})
	if err != nil {
		return nil, err
	}

	res.CreatedAt = user.CreatedAt.Format(timeLayout)
	return res, nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, apperror.Internal(err, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	accessToken, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Actor{UserID: user.ID, Role: user.Role}, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, apperror.Internal(err, "failed to generate token")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, apperror.Internal(err, "failed to generate refresh token")
	}
	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     hex.EncodeToString(raw),
		ExpiresAt: time.Now().Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.repo.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, apperror.Internal(err, "failed to store refresh token")
	}

	return &TokenResponse{Token: accessToken, RefreshToken: refresh.Token}, nil
}

// RefreshToken rotates a refresh token. The old one can not be used again.
func (s *userService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	stored, err := s.repo.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid refresh token")
		}
		return nil, apperror.Internal(err, "failed to load refresh token")
	}
	if err := s.repo.DeleteRefreshToken(ctx, stored.Token); err != nil {
		return nil, apperror.Internal(err, "failed to revoke refresh token")
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, apperror.Unauthorized("refresh token expired")
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("user no longer exists")
		}
		return nil, apperror.Internal(err, "failed to load user")
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return apperror.Internal(err, "failed to revoke refresh token")
	}
	return nil
}

func (s *userService) GetMe(ctx context.Context, actor auth.Actor) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, loadErr(err, "user")
	}
	res := mapToResponse(user)

	switch user.Role {
	case model.RoleNGO:
		if ngo, err := s.ngos.GetByUserID(ctx, user.ID); err == nil {
			id := ngo.ID.String()
			res.NGOID, res.OrgName = &id, ngo.OrgName
		}
	case model.RoleCorporate:
		if corp, err := s.corporates.GetByUserID(ctx, user.ID); err == nil {
			id := corp.ID.String()
			res.CorporateID, res.OrgName = &id, corp.CompanyName
		}
	}
	return res, nil
}
