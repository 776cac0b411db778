package service

import (
	"fmt"
	"unicode"

	"github.com/Bmariten/afripulse-v2-sub001/internal/config"
)

// validatePassword 按策略校验密码，失败时返回包装 ErrWeakPassword 的错误
func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	minLength := policy.MinLength
	if minLength < minPasswordLength {
		minLength = minPasswordLength
	}
	if len([]rune(password)) < minLength {
		return fmt.Errorf("%w: at least %d characters", ErrWeakPassword, minLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		default:
			hasSpecial = true
		}
	}

	switch {
	case policy.RequireUpper && !hasUpper:
		return fmt.Errorf("%w: an uppercase letter is required", ErrWeakPassword)
	case policy.RequireLower && !hasLower:
		return fmt.Errorf("%w: a lowercase letter is required", ErrWeakPassword)
	case policy.RequireNumber && !hasNumber:
		return fmt.Errorf("%w: a digit is required", ErrWeakPassword)
	case policy.RequireSpecial && !hasSpecial:
		return fmt.Errorf("%w: a special character is required", ErrWeakPassword)
	}
	return nil
}
