package handlers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

func validateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < 2 || n > 100 {
		return fmt.Errorf("name must be between 2 and 100 characters")
	}
	return nil
}

func validatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phonePattern.MatchString(phone) {
		return fmt.Errorf("invalid phone number")
	}
	return nil
}

func validateAge(age int) error {
	if age < 0 || age > 120 {
		return fmt.Errorf("age must be between 0 and 120")
	}
	return nil
}

func validateGender(gender string) error {
	switch strings.ToLower(gender) {
	case "", "male", "female", "other":
		return nil
	}
	return fmt.Errorf("gender must be male, female or other")
}

// validateDisease enforces the booking reason length bounds.
func validateDisease(disease string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(disease))
	if n < 3 || n > 100 {
		return fmt.Errorf("disease must be between 3 and 100 characters")
	}
	return nil
}

func validateFees(fees float64) error {
	if fees < 0 {
		return fmt.Errorf("fees must not be negative")
	}
	return nil
}
