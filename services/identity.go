package services

import (
	"slices"
)

// Role is the caller's organizational role as carried in the access token.
type Role string

const (
	RoleApplicant         Role = "applicant"
	RoleDistrictExpert    Role = "district_expert"
	RoleProvinceExpert    Role = "province_expert"
	RoleDestinationExpert Role = "destination_expert"
	RoleAdmin             Role = "admin"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID        string `json:"user_id"`
	PersonnelCode string `json:"personnel_code,omitempty"`
	Role          Role   `json:"role"`
	DistrictCode  string `json:"district_code,omitempty"`
	ProvinceCode  string `json:"province_code,omitempty"`
}

// IsAdmin reports whether the caller administers the whole system.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Authorize returns ErrUnauthorized unless the caller holds one of roles.
func Authorize(identity *Identity, roles ...Role) error {
	if identity == nil || identity.UserID == "" {
		return ErrUnauthorized
	}
	if len(roles) == 0 || slices.Contains(roles, identity.Role) {
		return nil
	}
	return ErrUnauthorized
}
