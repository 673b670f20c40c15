package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/storejobs/internal/auth"
	"github.com/geocoder89/storejobs/internal/config"
	"github.com/geocoder89/storejobs/internal/domain/user"
	"github.com/geocoder89/storejobs/internal/http/middlewares"
	"github.com/geocoder89/storejobs/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) error
}

type RefreshTokenStore interface {
	Create(ctx context.Context, row auth.RefreshToken) error
	Rotate(ctx context.Context, id string, fn func(current auth.RefreshToken) (auth.RefreshToken, error)) error
	Revoke(ctx context.Context, id string) error
}

type AuthHandler struct {
	users        UserStore
	jwt          *auth.Manager
	refreshStore RefreshTokenStore
	secureCookie bool
}

func NewAuthHandler(users UserStore, jwtManager *auth.Manager, refreshStore RefreshTokenStore, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:        users,
		jwt:          jwtManager,
		refreshStore: refreshStore,
		secureCookie: cfg.IsProd(),
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	AccessToken string       `json:"accessToken"`
	User        user.Summary `json:"user"`
	Role        user.Role    `json:"role"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooLong) {
			RespondValidation(ctx, FieldError{Field: "password", Rule: "max", Param: "72", Message: "must be at most 72 bytes"})
			return
		}
		RespondInternal(ctx, "Could not create user")
		return
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.RegistrationRole(),
		Phone:        req.Phone,
		Address:      req.Address,
		Gender:       req.Gender,
		Bio:          req.Bio,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.Create(cctx, u); err != nil {
		if errors.Is(err, user.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	h.startSession(ctx, cctx, u, http.StatusCreated)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			slog.Default().ErrorContext(cctx, "auth.login.lookup", "err", err, "request_id", requestIDFrom(ctx))
		}
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	if !foundUser.IsActive {
		RespondError(ctx, http.StatusForbidden, "account_inactive", "This account has been deactivated.", nil)
		return
	}

	h.startSession(ctx, cctx, foundUser, http.StatusOK)
}

// startSession issues an access token and a stored refresh token for u.
func (h *AuthHandler) startSession(ctx *gin.Context, cctx context.Context, u user.User, status int) {
	id := auth.IdentityOf(u)

	accessToken, err := h.jwt.GenerateAccessToken(id)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	rawRefreshToken, jti, expiresAt, err := h.jwt.GenerateRefreshToken(id)
	if err != nil {
		RespondInternal(ctx, "Could not generate refresh token")
		return
	}

	err = h.refreshStore.Create(cctx, auth.RefreshToken{
		ID:        jti,
		UserID:    u.ID,
		TokenHash: h.jwt.HashRefreshToken(rawRefreshToken),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setRefreshCookie(ctx, rawRefreshToken, expiresAt)

	ctx.JSON(status, sessionResponse{
		AccessToken: accessToken,
		User:        u.Summary(),
		Role:        u.Role,
	})
}

// Refresh exchanges the refresh cookie for a new pair. The old token is
// revoked in the same transaction that stores its replacement.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookieName)

	if err != nil || raw == "" {
		RespondUnAuthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	role, ok := claims.ParsedRole()
	if !ok {
		RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}
	id := auth.Identity{UserID: claims.UserID, Email: claims.Email, Role: role}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		newRaw       string
		newExpiresAt time.Time
	)

	err = h.refreshStore.Rotate(cctx, claims.JTI, func(current auth.RefreshToken) (auth.RefreshToken, error) {
		if err := auth.CheckRotatable(current, h.jwt.HashRefreshToken(raw), time.Now().UTC()); err != nil {
			return auth.RefreshToken{}, err
		}

		var (
			newJTI string
			genErr error
		)
		newRaw, newJTI, newExpiresAt, genErr = h.jwt.GenerateRefreshToken(id)
		if genErr != nil {
			return auth.RefreshToken{}, genErr
		}

		return auth.RefreshToken{
			ID:        newJTI,
			UserID:    current.UserID,
			TokenHash: h.jwt.HashRefreshToken(newRaw),
			ExpiresAt: newExpiresAt,
			CreatedAt: time.Now().UTC(),
		}, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRefreshExpired):
			RespondUnAuthorized(ctx, "expired_refresh", "Refresh token expired.")
		case errors.Is(err, auth.ErrRefreshTokenNotFound),
			errors.Is(err, auth.ErrRefreshRevoked),
			errors.Is(err, auth.ErrRefreshMismatch):
			RespondUnAuthorized(ctx, "invalid_refresh", "Invalid refresh token.")
		default:
			slog.Default().ErrorContext(cctx, "auth.refresh.rotate", "err", err, "request_id", requestIDFrom(ctx))
			RespondInternal(ctx, "Could not refresh session")
		}
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(id)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookieName)

	if err != nil || raw == "" {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := requestTimeout(ctx, 3*time.Second)
	defer cancel()

	// revoke that one token (idempotent)
	if err := h.refreshStore.Revoke(cctx, claims.JTI); err != nil {
		slog.Default().WarnContext(cctx, "auth.logout.revoke", "err", err, "request_id", requestIDFrom(ctx))
	}

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// GET /auth/me
func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := requestTimeout(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "unauthorized", "Account no longer exists")
			return
		}
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

const refreshCookieName = "refresh_token"

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		refreshCookieName,
		raw,
		maxAge,
		"/auth",
		"",
		h.secureCookie,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		refreshCookieName,
		"",
		-1,
		"/auth",
		"",
		h.secureCookie,
		true,
	)
}
