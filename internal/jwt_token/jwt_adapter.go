package jwttoken

import (
	authmw "complyhub/pkg/platform/middleware/auth"
)

// Validator exposes the service as the auth middleware's JWTValidator, which
// only needs the subject, roles and token ID.
func (s *JWTService) Validator() authmw.JWTValidator {
	return middlewareValidator{s}
}

type middlewareValidator struct {
	service *JWTService
}

func (v middlewareValidator) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{
		ActorID: claims.Subject,
		Roles:   claims.Roles,
		JTI:     claims.ID,
	}, nil
}
