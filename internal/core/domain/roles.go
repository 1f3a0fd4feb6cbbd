package domain

// Roles carried in the JWT and enforced by the RBAC middleware.
const (
	RoleAdmin    = "admin"
	RoleCourier  = "courier"
	RoleCustomer = "customer"
	// RoleService identifies trusted backend callers (the order service,
	// the courier assignment service).
	RoleService = "service"
)
