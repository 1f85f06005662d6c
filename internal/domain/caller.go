package domain

// Caller is the authenticated account behind a request.
type Caller struct {
	AccountID string
	Role      Role
}

// CanAccess reports whether the caller may act on data owned by ownerID.
func (c Caller) CanAccess(ownerID string) bool {
	return c.AccountID == ownerID || c.Role == RoleAdmin
}
