package types

// Identity is the resolved caller identity supplied by the auth layer.
// OrgID is empty for personal accounts.
type Identity struct {
	UserID    string `json:"user_id" validate:"required"`
	OrgID     string `json:"org_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	RoleSlug  string `json:"role_slug"`
}

// OrgIDPtr returns the org id as a nullable column value
func (i Identity) OrgIDPtr() *string {
	if i.OrgID == "" {
		return nil
	}
	orgID := i.OrgID
	return &orgID
}

// FullName joins first and last name for provider customer records
func (i Identity) FullName() string {
	if i.FirstName == "" {
		return i.LastName
	}
	if i.LastName == "" {
		return i.FirstName
	}
	return i.FirstName + " " + i.LastName
}
