package services

import (
	"encoding/hex"
	"errors"
	"fmt"

	"game-server-tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAuthenticationFailed is returned for any bad or unknown PSK. Format
// failures and unknown keys are deliberately indistinguishable.
var ErrAuthenticationFailed = errors.New("authentication failed")

// AuthContext is the request-scoped result of authentication. A missing PSK
// resolves to an anonymous, production-only context.
type AuthContext struct {
	Anonymous   bool
	Development bool
	Description string
}

// PSKValidator is a purely syntactic format check; it never consults the
// store.
type PSKValidator func(psk string) bool

type AuthService struct {
	db         *gorm.DB
	format     string
	validators map[string]PSKValidator
}

// NewAuthService builds an authenticator for the configured PSK format. The
// validator table is assembled here once and treated as immutable afterwards.
func NewAuthService(db *gorm.DB, format string) (*AuthService, error) {
	s := &AuthService{
		db:     db,
		format: format,
		validators: map[string]PSKValidator{
			"string": validateString,
			"uuid":   validateUUID,
			"md5":    validateMD5,
		},
	}
	if _, ok := s.validators[format]; !ok {
		return nil, fmt.Errorf("unknown PSK format %q", format)
	}
	return s, nil
}

// RegisterValidator adds a custom format checker. Only meant to be called
// during startup, before the service handles requests.
func (s *AuthService) RegisterValidator(name string, validator PSKValidator) error {
	if validator == nil {
		return fmt.Errorf("validator for %q is not callable", name)
	}
	s.validators[name] = validator
	return nil
}

// ValidateFormat checks the PSK against the configured format.
func (s *AuthService) ValidateFormat(psk string) bool {
	return s.validators[s.format](psk)
}

// Authenticate resolves a presented PSK into an AuthContext. An empty PSK
// yields an anonymous context; a non-empty PSK must pass the format check
// and match an active credential or the request fails.
func (s *AuthService) Authenticate(psk string) (*AuthContext, error) {
	if psk == "" {
		return &AuthContext{Anonymous: true}, nil
	}

	if !s.ValidateFormat(psk) {
		return nil, ErrAuthenticationFailed
	}

	var cred models.Credential
	err := s.db.Where("psk = ? AND active = ?", psk, true).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthenticationFailed
		}
		return nil, err
	}

	return &AuthContext{
		Development: cred.Development,
		Description: cred.Description,
	}, nil
}

func validateString(psk string) bool {
	return psk != ""
}

func validateUUID(psk string) bool {
	_, err := uuid.Parse(psk)
	return err == nil
}

func validateMD5(psk string) bool {
	if len(psk) != 32 {
		return false
	}
	_, err := hex.DecodeString(psk)
	return err == nil
}
