package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vonssyb/nacionmx-postulaciones/internal/config"
	"github.com/vonssyb/nacionmx-postulaciones/internal/core"
	"github.com/vonssyb/nacionmx-postulaciones/internal/models"
	"github.com/vonssyb/nacionmx-postulaciones/internal/store"
)

// ErrInvalidRoleID is returned when an allow-list entry is not a Discord snowflake
var ErrInvalidRoleID = errors.New("invalid role ID")

// allowListCacheKey is the cache entry for the staff role allow-list
const allowListCacheKey = "settings:staff_approval_roles"

// allowListTTL keeps allow-list reads off the database on every staff check
// while still picking up admin edits quickly.
const allowListTTL = time.Minute

// SettingsService owns the runtime portal configuration, most importantly
// the staff role allow-list. The database is the source of truth; the
// environment value only seeds behavior until an admin writes the setting.
type SettingsService struct {
	store *store.Store
	cfg   *config.Config
	cache core.Cache[[]string]
	audit *AuditService
}

// NewSettingsService creates a settings service
func NewSettingsService(
	s *store.Store,
	cfg *config.Config,
	cache core.Cache[[]string],
	audit *AuditService,
) *SettingsService {
	return &SettingsService{
		store: s,
		cfg:   cfg,
		cache: cache,
		audit: audit,
	}
}

// AllowedRoles returns the staff role allow-list. An empty stored value
// falls back to the configured STAFF_ROLE_IDS.
func (s *SettingsService) AllowedRoles(ctx context.Context) ([]string, error) {
	return s.cache.GetWithFetch(ctx, allowListCacheKey, allowListTTL,
		func(ctx context.Context, _ string) ([]string, error) {
			setting, err := s.store.GetSetting(models.SettingStaffApprovalRoles)
			if err != nil {
				if errors.Is(err, store.ErrRecordNotFound) {
					return s.cfg.StaffRoleIDs, nil
				}
				return nil, err
			}
			if roles := setting.ValueList(); len(roles) > 0 {
				return roles, nil
			}
			return s.cfg.StaffRoleIDs, nil
		})
}

// isSnowflake reports whether s looks like a Discord snowflake ID
func isSnowflake(s string) bool {
	if len(s) < 15 || len(s) > 21 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// UpdateAllowedRoles replaces the staff role allow-list. Every entry must
// be a Discord snowflake; the cache entry is dropped so the next staff
// check sees the new list.
func (s *SettingsService) UpdateAllowedRoles(
	ctx context.Context,
	roleIDs []string,
	updatedBy string,
) error {
	cleaned := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !isSnowflake(id) {
			return fmt.Errorf("%w: %q", ErrInvalidRoleID, id)
		}
		cleaned = append(cleaned, id)
	}

	err := s.store.UpsertSetting(
		models.SettingStaffApprovalRoles,
		strings.Join(cleaned, ","),
		updatedBy,
	)
	if err != nil {
		return err
	}

	_ = s.cache.Delete(ctx, allowListCacheKey)

	s.audit.Log(ctx, AuditEntry{
		EventType: models.EventSettingsUpdated,
		Severity:  models.SeverityWarning,
		ActorName: updatedBy,
		Success:   true,
		Details: models.AuditDetails{
			"key":   models.SettingStaffApprovalRoles,
			"roles": strings.Join(cleaned, ","),
		},
	})
	return nil
}

// RoleLabels returns the display label per staff role ID, e.g.
// "Owner" or "Co-Owner". Missing or malformed entries are skipped.
func (s *SettingsService) RoleLabels() (map[string]string, error) {
	setting, err := s.store.GetSetting(models.SettingStaffRoleLabels)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return setting.ValueMap(), nil
}

// Get returns one setting by key
func (s *SettingsService) Get(key string) (*models.Setting, error) {
	return s.store.GetSetting(key)
}

// List returns all settings
func (s *SettingsService) List() ([]models.Setting, error) {
	return s.store.ListSettings()
}
