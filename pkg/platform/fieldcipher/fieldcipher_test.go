package fieldcipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type FieldCipherSuite struct {
	suite.Suite
	cipher *Cipher
}

func (s *FieldCipherSuite) SetupTest() {
	key, err := GenerateKey()
	s.Require().NoError(err)
	s.cipher, err = New(key)
	s.Require().NoError(err)
}

func TestFieldCipherSuite(t *testing.T) {
	suite.Run(t, new(FieldCipherSuite))
}

func (s *FieldCipherSuite) TestRoundTrip() {
	for _, plaintext := range []string{
		"Department of the Air Force",
		"Col. J. Mitchell",
		"PO-2026-00417",
		"unicode: Škofja Loka ✈",
	} {
		token, err := s.cipher.Encrypt(plaintext)
		s.Require().NoError(err)
		s.True(IsToken(token))
		s.NotContains(token, plaintext)

		got, err := s.cipher.Decrypt(token)
		s.Require().NoError(err)
		s.Equal(plaintext, got)
	}
}

func (s *FieldCipherSuite) TestEmptyFieldStaysEmpty() {
	token, err := s.cipher.Encrypt("")
	s.Require().NoError(err)
	s.Empty(token)

	got, err := s.cipher.Decrypt("")
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *FieldCipherSuite) TestNonceVariesPerEncryption() {
	a, err := s.cipher.Encrypt("same input")
	s.Require().NoError(err)
	b, err := s.cipher.Encrypt("same input")
	s.Require().NoError(err)
	s.NotEqual(a, b)
}

func (s *FieldCipherSuite) TestWrongKeyFailsDistinctly() {
	token, err := s.cipher.Encrypt("funding source: FMS case AT-D-SAB")
	s.Require().NoError(err)

	otherKey, err := GenerateKey()
	s.Require().NoError(err)
	other, err := New(otherKey)
	s.Require().NoError(err)

	_, err = other.Decrypt(token)
	s.Require().ErrorIs(err, ErrDecrypt)
}

func (s *FieldCipherSuite) TestGarbageTokensRejected() {
	for _, token := range []string{
		"not a token",
		TokenPrefix + "%%%not-base64%%%",
		TokenPrefix + "c2hvcnQ", // too short to hold a nonce
	} {
		_, err := s.cipher.Decrypt(token)
		s.Require().ErrorIs(err, ErrDecrypt, "token %q", token)
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New("")
	require.ErrorIs(t, err, ErrKeyMissing)

	_, err = New("dG9vLXNob3J0") // valid base64, wrong length
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = New("!!!definitely not base64!!!")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
