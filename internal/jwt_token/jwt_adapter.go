package jwttoken

import (
	"aerostore/internal/platform/middleware"
)

// JWTServiceAdapter adapts JWTService to the middleware's validator contract.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateAdminToken(tokenString string) (*middleware.AdminClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.AdminClaims{AdminID: claims.AdminID}, nil
}
