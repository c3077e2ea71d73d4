package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserType string

const (
	UserTypeAdmin    UserType = "admin"
	UserTypeSupplier UserType = "supplier"
	UserTypeUser     UserType = "user"
)

type User struct {
	ID          uuid.UUID
	Email       string
	FullName    string
	Phone       string
	BirthDate   *time.Time
	Language    string
	Type        UserType
	Verified    bool
	Blacklisted bool
	License     *string

	// Supplier settings.
	LicenseRequired bool
	PayLater        bool

	// ExpireAt is set on guest drivers while their booking awaits payment.
	ExpireAt  *time.Time
	CreatedAt time.Time
}

// NewGuestDriver builds the unverified user created inline during checkout.
func NewGuestDriver(email, fullName, phone, language string, birthDate *time.Time, license *string) *User {
	return &User{
		ID:          uuid.New(),
		Email:       email,
		FullName:    fullName,
		Phone:       phone,
		BirthDate:   birthDate,
		Language:    language,
		Type:        UserTypeUser,
		Verified:    false,
		Blacklisted: false,
		License:     license,
		CreatedAt:   time.Now().UTC(),
	}
}

func (u *User) HasLicense() bool {
	return u.License != nil && *u.License != ""
}

// Token is a one-time activation token for a guest account.
type Token struct {
	UserID    uuid.UUID
	Value     string
	CreatedAt time.Time
}

func NewActivationToken(userID uuid.UUID) *Token {
	return &Token{
		UserID:    userID,
		Value:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}
