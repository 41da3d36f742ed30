package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LovationAdmin/trackit-api/models"
	"github.com/LovationAdmin/trackit-api/repository"
	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/google/uuid"
)

type AuthService struct {
	users      repository.UserRepository
	categories *CategoryService
	tokens     *utils.TokenManager
	cipher     *utils.Cipher
	now        func() time.Time
}

func NewAuthService(store *repository.Store, tokens *utils.TokenManager, cipher *utils.Cipher) *AuthService {
	return &AuthService{
		users:      store.Users,
		categories: NewCategoryService(store.Categories),
		tokens:     tokens,
		cipher:     cipher,
		now:        time.Now,
	}
}

func (s *AuthService) respond(u *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Generate(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &models.AuthResponse{Token: token, User: *u}, nil
}

// Register creates the account with default preferences and seeds the
// default categories.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Preferences:  models.DefaultPreferences(),
		Level:        1,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			utils.LogAuthAction("register", email, false)
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if err := s.categories.Seed(ctx, u.ID); err != nil {
		return nil, err
	}

	utils.LogAuthAction("register", email, true)
	return s.respond(u)
}

// Login checks the password and, when 2FA is on, the TOTP code.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.LogAuthAction("login", email, false)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(req.Password, u.PasswordHash) {
		utils.LogAuthAction("login", email, false)
		return nil, ErrInvalidCredentials
	}

	if u.TOTPEnabled {
		if req.TOTPCode == "" {
			return nil, ErrTOTPRequired
		}
		ok, err := s.checkCode(u, req.TOTPCode)
		if err != nil {
			return nil, err
		}
		if !ok {
			utils.LogAuthAction("login_2fa", email, false)
			return nil, ErrInvalidTOTP
		}
	}

	utils.LogAuthAction("login", email, true)
	return s.respond(u)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Avatar != nil {
		u.Avatar = *req.Avatar
	}
	if req.Preferences != nil {
		prefs := *req.Preferences
		prefs.Currency = strings.ToUpper(prefs.Currency)
		if prefs.Currency == "" {
			prefs.Currency = u.Preferences.Currency
		}
		u.Preferences = prefs
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ============================================================================
// 2FA
// ============================================================================

func (s *AuthService) checkCode(u *models.User, code string) (bool, error) {
	if u.TOTPSecret == "" {
		return false, ErrTOTPNotSetUp
	}
	secret, err := s.cipher.Decrypt(u.TOTPSecret)
	if err != nil {
		return false, fmt.Errorf("decrypt totp secret: %w", err)
	}
	return utils.VerifyTOTP(string(secret), code), nil
}

// SetupTOTP stores a fresh encrypted secret. 2FA stays off until VerifyTOTP
// confirms a code.
func (s *AuthService) SetupTOTP(ctx context.Context, userID string) (*models.TOTPSetupResponse, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	secret, url, err := utils.GenerateTOTPSecret(u.Email)
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	sealed, err := s.cipher.Encrypt([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("encrypt totp secret: %w", err)
	}
	if err := s.users.UpdateTOTP(ctx, userID, sealed, false); err != nil {
		return nil, err
	}
	utils.LogAuthAction("2fa_setup", u.Email, true)
	return &models.TOTPSetupResponse{Secret: secret, QRCode: url}, nil
}

func (s *AuthService) VerifyTOTP(ctx context.Context, userID, code string) error {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := s.checkCode(u, code)
	if err != nil {
		return err
	}
	if !ok {
		utils.LogAuthAction("2fa_verify", u.Email, false)
		return ErrInvalidTOTP
	}
	utils.LogAuthAction("2fa_verify", u.Email, true)
	return s.users.UpdateTOTP(ctx, userID, u.TOTPSecret, true)
}

func (s *AuthService) DisableTOTP(ctx context.Context, userID, code string) error {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !u.TOTPEnabled {
		return ErrTOTPNotSetUp
	}
	ok, err := s.checkCode(u, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTOTP
	}
	utils.LogAuthAction("2fa_disable", u.Email, true)
	return s.users.UpdateTOTP(ctx, userID, "", false)
}
