package domain

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/lorrc/portal-backend/internal/core/errors"
)

// Field length limits for user validation.
const (
	MaxFullNameLength = 255
	MaxEmailLength    = 255
)

// User is a portal account. Accounts are soft-disabled, never deleted, so a
// fired employee's tickets keep a valid creator reference. IsAdmin and
// HasPublishedRights are independent capabilities: the latter governs post
// authoring and has nothing to do with tickets.
type User struct {
	ID                 uuid.UUID
	FullName           string
	Email              string
	PasswordHash       string
	IsAdmin            bool
	HasPublishedRights bool
	DepartmentID       int64
	Disabled           bool
	CreatedAt          time.Time
}

// UserParams holds parameters for onboarding a new user.
type UserParams struct {
	FullName     string
	Email        string
	Password     string
	DepartmentID int64
}

// Validate validates onboarding parameters.
func (p *UserParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	if p.FullName == "" {
		errs.Add("fullName", "Full name is required")
	} else if len(p.FullName) > MaxFullNameLength {
		errs.Add("fullName", "Full name must be 255 characters or less")
	}

	if p.Email == "" {
		errs.Add("email", "Email is required")
	} else if len(p.Email) > MaxEmailLength {
		errs.Add("email", "Email must be 255 characters or less")
	} else if !isValidEmail(p.Email) {
		errs.Add("email", "Invalid email format")
	}

	if p.Password == "" {
		errs.Add("password", "Password is required")
	}

	if p.DepartmentID == 0 {
		errs.Add("departmentId", "Department is required")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// isValidEmail validates email format
func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// CheckPassword verifies if the provided password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// NewUser creates a new user with validated parameters.
func NewUser(params UserParams) (*User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           uuid.New(),
		FullName:     params.FullName,
		Email:        params.Email,
		PasswordHash: hash,
		DepartmentID: params.DepartmentID,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
