// Package prefs stores the child's profile: name, gender, languages and
// age, keyed by an opaque identity such as a browser cookie.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoIdentity is returned when a store is called without an identity.
	ErrNoIdentity = errors.New("prefs: no identity")
	// ErrInvalid wraps validation failures.
	ErrInvalid = errors.New("prefs: invalid preferences")
)

// Gender is one of the genders offered to the child.
type Gender string

const (
	Boy   Gender = "boy"
	Girl  Gender = "girl"
	Other Gender = "other"
)

// Genders lists the accepted values in display order.
var Genders = []Gender{Boy, Girl, Other}

// Languages offered by the wizard.
var Languages = []string{"english", "spanish", "french"}

// MaxAge is the oldest age the profile accepts.
const MaxAge = 18

// Preferences is the child's profile.
type Preferences struct {
	FirstName         string `json:"firstName" db:"first_name"`
	LastName          string `json:"lastName" db:"last_name"`
	Gender            Gender `json:"gender" db:"gender"`
	MainLanguage      string `json:"mainLanguage" db:"main_language"`
	PreferredLanguage string `json:"preferredLanguage" db:"preferred_language"`
	Age               int    `json:"age" db:"age"`
}

// Normalize trims names and lowercases the enumerated fields.
func (p *Preferences) Normalize() {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Gender = Gender(strings.ToLower(strings.TrimSpace(string(p.Gender))))
	p.MainLanguage = strings.ToLower(strings.TrimSpace(p.MainLanguage))
	p.PreferredLanguage = strings.ToLower(strings.TrimSpace(p.PreferredLanguage))
}

// Validate reports the first problem with p.
func (p Preferences) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("%w: first name is required", ErrInvalid)
	}
	if !ValidGender(p.Gender) {
		return fmt.Errorf("%w: gender must be boy, girl or other, got %q", ErrInvalid, p.Gender)
	}
	if p.MainLanguage == "" || p.PreferredLanguage == "" {
		return fmt.Errorf("%w: main and preferred language are required", ErrInvalid)
	}
	if p.Age < 1 || p.Age > MaxAge {
		return fmt.Errorf("%w: age must be between 1 and %d, got %d", ErrInvalid, MaxAge, p.Age)
	}
	return nil
}

// ValidGender reports whether g is an accepted value.
func ValidGender(g Gender) bool {
	for _, v := range Genders {
		if g == v {
			return true
		}
	}
	return false
}

// Store persists preferences by identity.
type Store interface {
	// Get returns nil, nil when nothing is stored for identity.
	Get(ctx context.Context, identity string) (*Preferences, error)
	// Put validates p and stores it, replacing any earlier profile.
	Put(ctx context.Context, identity string, p Preferences) error
	Close() error
}

// prepare is the shared front half of Put.
func prepare(identity string, p *Preferences) error {
	if strings.TrimSpace(identity) == "" {
		return ErrNoIdentity
	}
	p.Normalize()
	return p.Validate()
}
