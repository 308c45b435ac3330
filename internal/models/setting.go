package models

import (
	"strings"
	"time"
)

// Well-known settings keys
const (
	SettingStaffApprovalRoles = "staff_approval_roles"
	SettingStaffGuildID       = "staff_guild_id"
	SettingStaffRoleLabels    = "staff_role_labels"
)

// Setting is one key/value pair of runtime portal configuration
type Setting struct {
	Key         string `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value       string `gorm:"type:text"                   json:"value"`
	Description string `gorm:"type:text"                   json:"description,omitempty"`

	UpdatedBy string    `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValueList splits a comma-separated setting value into trimmed entries
func (s *Setting) ValueList() []string {
	var out []string
	for _, part := range strings.Split(s.Value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ValueMap splits a comma-separated list of id:label pairs, used for the
// staff role display labels.
func (s *Setting) ValueMap() map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s.Value, ",") {
		id, label, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		id, label = strings.TrimSpace(id), strings.TrimSpace(label)
		if id != "" && label != "" {
			out[id] = label
		}
	}
	return out
}
