package auth

import (
	"forecast-ingest/edi/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is what handlers see of the authenticated caller
type UserClaims interface {
	UserID() string
	Role() string
	Source() string
	HasPermission(action string) bool
}

// JWTClaims is the payload of an ops API token. The subject names the
// operator or automation that holds it.
type JWTClaims struct {
	jwt.RegisteredClaims
	RoleValue constants.OpsRole `json:"role"`
}

func (c *JWTClaims) UserID() string { return c.RegisteredClaims.Subject }
func (c *JWTClaims) Role() string   { return c.RoleValue.String() }
func (c *JWTClaims) Source() string { return "JWT" }

// HasPermission lets operators do everything and viewers only read
func (c *JWTClaims) HasPermission(action string) bool {
	switch c.RoleValue {
	case constants.RoleOperator:
		return true
	case constants.RoleViewer:
		return action == constants.ActionRead
	default:
		return false
	}
}
