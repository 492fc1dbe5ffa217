// internal/models/user.go
package models

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Username      string  `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email         *string `json:"email,omitempty" gorm:"uniqueIndex;size:255"`
	PasswordHash  string  `json:"-" gorm:"size:255;not null"`
	Role          Role    `json:"role" gorm:"type:varchar(20);not null"`
	WalletAddress string  `json:"walletAddress" gorm:"size:100"`
}

// UserProfile is the public shape returned with a session token.
type UserProfile struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Username: u.Username, Role: u.Role}
}
