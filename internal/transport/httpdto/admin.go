package httpdto

// SetRoleRequest is used for PUT /v1/admin/users/:id/role
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// SuspendRequest is used for POST /v1/admin/users/:id/suspend.
// Minutes 0 suspends until lifted.
type SuspendRequest struct {
	Reason  string `json:"reason"`
	Minutes int    `json:"minutes"`
}

// WarnRequest is used for POST /v1/admin/users/:id/warn
type WarnRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// WarnResponse reports the warning count and whether it tripped an
// automatic suspension.
type WarnResponse struct {
	UserID    string `json:"user_id"`
	Count     int    `json:"count"`
	Escalated bool   `json:"escalated"`
}

// RoleResponse is returned when reading or changing a user's role.
type RoleResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
