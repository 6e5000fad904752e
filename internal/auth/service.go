package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"aerostore/internal/customer"
	jwttoken "aerostore/internal/jwt_token"
	dErrors "aerostore/pkg/domain-errors"
	"aerostore/pkg/email"
	"aerostore/pkg/platform/sentinel"
)

const minPasswordLength = 8

// AdminCredentials is the single back-office account. PasswordHash is a
// bcrypt hash; an empty hash disables admin login entirely.
type AdminCredentials struct {
	Username     string
	PasswordHash string
	TokenTTL     time.Duration
}

// Service implements customer registration and login plus the admin login
// that issues back-office tokens.
type Service struct {
	customers customer.Store
	admin     AdminCredentials
	tokens    *jwttoken.JWTService
}

func NewService(customers customer.Store, admin AdminCredentials, tokens *jwttoken.JWTService) *Service {
	if admin.TokenTTL <= 0 {
		admin.TokenTTL = 8 * time.Hour
	}
	return &Service{
		customers: customers,
		admin:     admin,
		tokens:    tokens,
	}
}

// Register creates a customer account. The email is folded before storage so
// lookups and checkout resolution share one canonical form.
func (s *Service) Register(ctx context.Context, name, address, password string) (customer.Customer, error) {
	folded := email.Fold(address)
	if folded == "" {
		return customer.Customer{}, dErrors.New(dErrors.CodeValidation, "email is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = email.DeriveDisplayName(folded)
	}
	if len(password) < minPasswordLength {
		return customer.Customer{}, dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return customer.Customer{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not hash password")
	}

	c := customer.Customer{
		Name:         name,
		Email:        folded,
		PasswordHash: string(hash),
	}
	id, err := s.customers.Create(ctx, c)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return customer.Customer{}, dErrors.New(dErrors.CodeConflict, "an account with this email already exists")
		}
		return customer.Customer{}, dErrors.Wrap(err, dErrors.CodePersistence, "could not create account")
	}
	c.ID = id
	return c, nil
}

// Login verifies credentials. Unknown email and wrong password return the
// same error so the endpoint does not leak which accounts exist.
func (s *Service) Login(ctx context.Context, address, password string) (customer.Customer, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

	c, err := s.customers.FindByEmail(ctx, email.Fold(address))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return customer.Customer{}, invalid
		}
		return customer.Customer{}, dErrors.Wrap(err, dErrors.CodePersistence, "could not look up account")
	}
	// Accounts created implicitly at checkout have no password until the
	// customer registers.
	if c.PasswordHash == "" {
		return customer.Customer{}, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return customer.Customer{}, invalid
	}
	return c, nil
}

// AdminLogin verifies the back-office credentials and issues an access token.
func (s *Service) AdminLogin(username, password string) (string, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid admin credentials")

	if s.admin.PasswordHash == "" {
		return "", dErrors.New(dErrors.CodeConfiguration, "admin login is not configured")
	}
	if username != s.admin.Username {
		return "", invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(password)); err != nil {
		return "", invalid
	}

	token, err := s.tokens.GenerateAdminToken(username, s.admin.TokenTTL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not issue admin token")
	}
	return token, nil
}
