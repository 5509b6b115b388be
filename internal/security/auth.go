// Package security holds the credential primitives behind API authentication:
// password hashes, signed tokens, cookie sessions, a user lookup cache and
// login throttling.
package security

// AuthMethod represents the method used for authentication.
type AuthMethod string

const (
	AuthMethodNone    AuthMethod = ""        // No authentication used
	AuthMethodBearer  AuthMethod = "bearer"  // JWT access token in the Authorization header
	AuthMethodBasic   AuthMethod = "basic"   // HTTP Basic username and password
	AuthMethodSession AuthMethod = "session" // Cookie session set by the login endpoint
)

// String returns the method name used in logs and metrics labels.
func (m AuthMethod) String() string {
	if m == AuthMethodNone {
		return "none"
	}
	return string(m)
}
