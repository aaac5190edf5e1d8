// Package prefs persists per-session UI preferences. It never holds journal
// data.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

type Language string

const (
	English Language = "en"
	Farsi   Language = "fa"
)

const keyPrefix = "tradeflow_state:"

var ErrInvalidPreference = errors.New("invalid preference")

type Preferences struct {
	Theme        Theme    `json:"theme"`
	Language     Language `json:"language"`
	HasOnboarded bool     `json:"hasOnboarded"`
}

func Default() Preferences {
	return Preferences{Theme: Dark, Language: English}
}

func (p Preferences) Validate() error {
	if p.Theme != Light && p.Theme != Dark {
		return fmt.Errorf("%w: theme %q", ErrInvalidPreference, p.Theme)
	}
	if p.Language != English && p.Language != Farsi {
		return fmt.Errorf("%w: language %q", ErrInvalidPreference, p.Language)
	}
	return nil
}

// Dir is the text direction for the language.
func (p Preferences) Dir() string {
	if p.Language == Farsi {
		return "rtl"
	}
	return "ltr"
}

type Service struct {
	store Store
	ttl   time.Duration
}

// NewService stores preferences in s. A zero ttl keeps them forever.
func NewService(s Store, ttl time.Duration) *Service {
	return &Service{store: s, ttl: ttl}
}

func Key(sessionID string) string { return keyPrefix + sessionID }

// Load returns the stored preferences or the defaults. Unreadable entries
// are discarded.
func (s *Service) Load(ctx context.Context, sessionID string) (Preferences, error) {
	raw, ok, err := s.store.Get(ctx, Key(sessionID))
	if err != nil {
		return Default(), fmt.Errorf("load preferences: %w", err)
	}
	if !ok {
		return Default(), nil
	}
	p := Default()
	if err := json.Unmarshal(raw, &p); err != nil || p.Validate() != nil {
		slog.WarnContext(ctx, "Discarding unreadable preferences", "session_id", sessionID)
		return Default(), nil
	}
	return p, nil
}

func (s *Service) Save(ctx context.Context, sessionID string, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.store.Set(ctx, Key(sessionID), raw, s.ttl); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// Update loads, applies fn and saves.
func (s *Service) Update(ctx context.Context, sessionID string, fn func(*Preferences)) (Preferences, error) {
	p, err := s.Load(ctx, sessionID)
	if err != nil {
		return p, err
	}
	fn(&p)
	if err := s.Save(ctx, sessionID, p); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Service) ToggleTheme(ctx context.Context, sessionID string) (Preferences, error) {
	return s.Update(ctx, sessionID, func(p *Preferences) {
		if p.Theme == Dark {
			p.Theme = Light
		} else {
			p.Theme = Dark
		}
	})
}

func (s *Service) ToggleLanguage(ctx context.Context, sessionID string) (Preferences, error) {
	return s.Update(ctx, sessionID, func(p *Preferences) {
		if p.Language == English {
			p.Language = Farsi
		} else {
			p.Language = English
		}
	})
}

func (s *Service) MarkOnboarded(ctx context.Context, sessionID string) (Preferences, error) {
	return s.Update(ctx, sessionID, func(p *Preferences) { p.HasOnboarded = true })
}
