package token

// ValidatorAdapter exposes the token service through the middleware's
// validator interface.
type ValidatorAdapter struct {
	service *Service
}

func NewValidatorAdapter(service *Service) *ValidatorAdapter {
	return &ValidatorAdapter{service: service}
}

func (a *ValidatorAdapter) ValidateOperator(tokenString string) (string, error) {
	claims, err := a.service.Validate(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Operator, nil
}
