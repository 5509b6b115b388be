package security

import "time"

// Security-related constants
const (
	// Session and cookie settings
	SessionCookieName           = "itemstore_session"
	DefaultSessionMaxAgeDays    = 7
	DefaultSessionMaxAgeSeconds = 86400 * DefaultSessionMaxAgeDays // 7 days in seconds
	sessionUserIDKey            = "user_id"

	// Cryptographic settings
	MinSecretLength = 32

	// Token lifetimes used when settings leave them at zero
	DefaultAccessTokenTTL  = 5 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour

	// JWT issuer claim
	TokenIssuerName = "itemstore"

	// Login throttling
	DefaultLoginsPerMinute = 10
	LimiterIdleTimeout     = 10 * time.Minute

	// User cache cleanup runs at this multiple of the TTL
	cacheCleanupFactor = 2

	// Session store settings
	MaxSessionSizeBytes = 4096 // one cookie
)
