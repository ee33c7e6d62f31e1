// Package profile manages user profiles: the display name and the
// personalization knobs (tone, pace, user type) that shape chat replies.
package profile

import (
	"time"

	"github.com/google/uuid"
)

// Tone is the communication tone a user prefers.
type Tone string

// Communication tones.
const (
	ToneFriendly  Tone = "friendly"
	ToneFormal    Tone = "formal"
	ToneTechnical Tone = "technical"
)

// Valid reports whether t is a known tone.
func (t Tone) Valid() bool {
	switch t {
	case ToneFriendly, ToneFormal, ToneTechnical:
		return true
	}
	return false
}

// Pace is the learning pace a user prefers.
type Pace string

// Learning paces.
const (
	PaceSlow   Pace = "slow"
	PaceMedium Pace = "medium"
	PaceFast   Pace = "fast"
)

// Valid reports whether p is a known pace.
func (p Pace) Valid() bool {
	switch p {
	case PaceSlow, PaceMedium, PaceFast:
		return true
	}
	return false
}

// UserType categorizes the user.
type UserType string

// User types.
const (
	UserStudent      UserType = "student"
	UserDeveloper    UserType = "developer"
	UserProfessional UserType = "professional"
	UserGeneral      UserType = "general"
)

// Valid reports whether u is a known user type.
func (u UserType) Valid() bool {
	switch u {
	case UserStudent, UserDeveloper, UserProfessional, UserGeneral:
		return true
	}
	return false
}

// Profile is a user's identity and personalization settings.
// Created at sign-up, mutated only by its owner, never deleted by the
// application.
type Profile struct {
	ID          uuid.UUID      `json:"id"`
	DisplayName string         `json:"display_name"`
	Tone        Tone           `json:"communication_tone"`
	Pace        Pace           `json:"learning_pace"`
	UserType    UserType       `json:"user_type"`
	Preferences map[string]any `json:"preferences"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Default returns the profile used when a user has none stored: the chat
// pipeline tolerates absence via these defaults.
func Default(userID uuid.UUID) *Profile {
	return &Profile{
		ID:          userID,
		DisplayName: "User",
		Tone:        ToneFriendly,
		Pace:        PaceMedium,
		UserType:    UserGeneral,
		Preferences: map[string]any{},
	}
}
