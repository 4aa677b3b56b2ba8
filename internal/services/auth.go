package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/apierr"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
	"github.com/vidyasetu/vidyasetu-backend/internal/utils"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

type AuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type AuthClaims struct {
	LearnerID uuid.UUID `json:"learner_id"`
	Email     string    `json:"email"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*types.Learner, *AuthTokens, error)
	Login(ctx context.Context, email, password string) (*types.Learner, *AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, learnerID uuid.UUID) error
	ParseAccessToken(tokenString string) (*AuthClaims, error)
}

type authService struct {
	db       *gorm.DB
	log      *logger.Logger
	secret   []byte
	learners repos.LearnerRepo
	tokens   repos.LearnerTokenRepo
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, learners repos.LearnerRepo, tokens repos.LearnerTokenRepo) AuthService {
	log := baseLog.With("service", "AuthService")
	secret := utils.GetEnv("JWT_SECRET", "", log)
	if secret == "" {
		log.Warn("JWT_SECRET not set, using an ephemeral secret")
		secret = uuid.NewString()
	}
	return &authService{
		db:       db,
		log:      log,
		secret:   []byte(secret),
		learners: learners,
		tokens:   tokens,
	}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*types.Learner, *AuthTokens, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || len(password) < 8 {
		return nil, nil, apierr.InvalidRequest(fmt.Errorf("name, email, and a password of 8+ characters are required"))
	}
	dbc := dbctx.Context{Ctx: ctx}
	exists, err := s.learners.EmailExists(dbc, email)
	if err != nil {
		return nil, nil, apierr.PersistenceFailure(err)
	}
	if exists {
		return nil, nil, apierr.InvalidRequest(fmt.Errorf("email already registered"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apierr.PersistenceFailure(err)
	}
	learner, err := s.learners.Create(dbc, &types.Learner{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, nil, apierr.PersistenceFailure(err)
	}

	tokens, err := s.issueTokens(dbc, learner)
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("Registered learner", "learner_id", learner.ID.String())
	return learner, tokens, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*types.Learner, *AuthTokens, error) {
	dbc := dbctx.Context{Ctx: ctx}
	learner, err := s.learners.GetByEmail(dbc, email)
	if err != nil {
		return nil, nil, apierr.PersistenceFailure(err)
	}
	if learner == nil {
		return nil, nil, apierr.Unauthorized(fmt.Errorf("invalid credentials"))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(learner.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apierr.Unauthorized(fmt.Errorf("invalid credentials"))
	}
	tokens, err := s.issueTokens(dbc, learner)
	if err != nil {
		return nil, nil, err
	}
	return learner, tokens, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	dbc := dbctx.Context{Ctx: ctx}
	row, err := s.tokens.GetByRefreshToken(dbc, refreshToken)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if row == nil || time.Now().After(row.ExpiresAt) {
		return nil, apierr.Unauthorized(fmt.Errorf("refresh token invalid or expired"))
	}
	learner, err := s.learners.GetByID(dbc, row.LearnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if learner == nil {
		return nil, apierr.Unauthorized(fmt.Errorf("learner no longer exists"))
	}
	// Rotate: old refresh tokens are dropped on each refresh.
	if err := s.tokens.DeleteByLearnerID(dbc, learner.ID); err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	return s.issueTokens(dbc, learner)
}

func (s *authService) Logout(ctx context.Context, learnerID uuid.UUID) error {
	if err := s.tokens.DeleteByLearnerID(dbctx.Context{Ctx: ctx}, learnerID); err != nil {
		return apierr.PersistenceFailure(err)
	}
	return nil
}

func (s *authService) issueTokens(dbc dbctx.Context, learner *types.Learner) (*AuthTokens, error) {
	expiresAt := time.Now().Add(accessTokenTTL)
	claims := &AuthClaims{
		LearnerID: learner.ID,
		Email:     learner.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   learner.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}

	refresh := uuid.NewString() + uuid.NewString()
	if _, err := s.tokens.Create(dbc, &types.LearnerToken{
		ID:           uuid.New(),
		LearnerID:    learner.ID,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(refreshTokenTTL),
	}); err != nil {
		return nil, apierr.PersistenceFailure(err)
	}

	return &AuthTokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

func (s *authService) ParseAccessToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apierr.Unauthorized(fmt.Errorf("invalid access token"))
	}
	return claims, nil
}
