package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// Display name length bounds, in characters.
const (
	MinDisplayNameLen = 2
	MaxDisplayNameLen = 50
)

// ProfileService reads and renames owner profiles. Base-currency changes go
// through CurrencyMigrator.
type ProfileService struct {
	profiles ProfileWriter
	logger   *log.Logger
}

func NewProfileService(profiles ProfileWriter, logger *log.Logger) *ProfileService {
	if logger == nil {
		logger = log.Default()
	}
	return &ProfileService{profiles: profiles, logger: logger.WithComponent(log.ComponentProfile)}
}

func (s *ProfileService) Get(ctx context.Context, ownerID string) (core.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		return core.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// UpdateDisplayName trims name, checks its length and stores it.
func (s *ProfileService) UpdateDisplayName(ctx context.Context, ownerID, name string) (core.Profile, error) {
	name = strings.TrimSpace(name)
	switch n := utf8.RuneCountInString(name); {
	case n < MinDisplayNameLen:
		return core.Profile{}, core.Validation("update display name", "El nombre debe tener al menos 2 caracteres")
	case n > MaxDisplayNameLen:
		return core.Profile{}, core.Validation("update display name", "El nombre no puede exceder 50 caracteres")
	}
	if err := s.profiles.SetDisplayName(ctx, ownerID, name); err != nil {
		return core.Profile{}, fmt.Errorf("save display name: %w", err)
	}
	s.logger.InfoContext(ctx, "Display name updated", log.FieldOwnerID, ownerID)
	return s.Get(ctx, ownerID)
}
