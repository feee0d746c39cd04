// File: internal/domain/user.go
package domain

// Identity classes carried in the auth token. Account records
// themselves live with the identity provider, not in this service.
const (
	UserTypeGuest   = "guest"
	UserTypeRegular = "regular"
)
