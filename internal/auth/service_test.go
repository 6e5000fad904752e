package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"aerostore/internal/customer"
	jwttoken "aerostore/internal/jwt_token"
	dErrors "aerostore/pkg/domain-errors"
)

type AuthServiceSuite struct {
	suite.Suite
	ctx       context.Context
	customers *customer.InMemoryStore
	service   *Service
}

func (s *AuthServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.customers = customer.NewInMemoryStore()

	adminHash, err := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	s.Require().NoError(err)

	s.service = NewService(s.customers, AdminCredentials{
		Username:     "admin",
		PasswordHash: string(adminHash),
		TokenTTL:     time.Hour,
	}, jwttoken.NewJWTService("test-signing-key", "aerostore", "aerostore-admin"))
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) TestRegisterAndLogin() {
	c, err := s.service.Register(s.ctx, "Col. J. Mitchell", "J.Mitchell@AF.MIL", "wingman-goose-42")
	s.Require().NoError(err)
	s.NotZero(c.ID)
	s.Equal("j.mitchell@af.mil", c.Email, "stored email is folded")
	s.NotEqual("wingman-goose-42", c.PasswordHash)

	logged, err := s.service.Login(s.ctx, "j.mitchell@af.mil", "wingman-goose-42")
	s.Require().NoError(err)
	s.Equal(c.ID, logged.ID)
}

func (s *AuthServiceSuite) TestRegisterDerivesNameWhenEmpty() {
	c, err := s.service.Register(s.ctx, "", "john.mitchell@af.mil", "wingman-goose-42")
	s.Require().NoError(err)
	s.Equal("John Mitchell", c.Name)
}

func (s *AuthServiceSuite) TestRegisterValidation() {
	_, err := s.service.Register(s.ctx, "x", "", "wingman-goose-42")
	s.True(dErrors.Is(err, dErrors.CodeValidation))

	_, err = s.service.Register(s.ctx, "x", "a@b.mil", "short")
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *AuthServiceSuite) TestRegisterDuplicateEmail() {
	_, err := s.service.Register(s.ctx, "x", "a@b.mil", "wingman-goose-42")
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "y", "A@B.MIL", "other-password-9")
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *AuthServiceSuite) TestLoginRejectsBadCredentials() {
	_, err := s.service.Register(s.ctx, "x", "a@b.mil", "wingman-goose-42")
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, "a@b.mil", "wrong-password")
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))

	_, unknownErr := s.service.Login(s.ctx, "nobody@b.mil", "wrong-password")
	s.True(dErrors.Is(unknownErr, dErrors.CodeUnauthorized))
	s.Equal(err.Error(), unknownErr.Error(), "unknown email and wrong password are indistinguishable")
}

func (s *AuthServiceSuite) TestLoginRejectsPasswordlessAccount() {
	// Checkout creates accounts without a password; they cannot log in until
	// they register.
	_, err := s.customers.Create(s.ctx, customer.Customer{Name: "x", Email: "ghost@b.mil"})
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, "ghost@b.mil", "")
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *AuthServiceSuite) TestAdminLogin() {
	token, err := s.service.AdminLogin("admin", "correct horse battery")
	s.Require().NoError(err)
	s.NotEmpty(token)

	_, err = s.service.AdminLogin("admin", "wrong")
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))

	_, err = s.service.AdminLogin("root", "correct horse battery")
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}

func (s *AuthServiceSuite) TestAdminLoginUnconfigured() {
	unconfigured := NewService(s.customers, AdminCredentials{Username: "admin"}, jwttoken.NewJWTService("k", "i", "a"))
	_, err := unconfigured.AdminLogin("admin", "anything")
	s.True(dErrors.Is(err, dErrors.CodeConfiguration))
}
