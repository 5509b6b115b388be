package security

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

// SessionManager keeps the logged-in user ID in an encrypted cookie.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
}

// NewSessionManager creates a cookie store keyed from secret. A zero maxAge
// uses the default of seven days.
func NewSessionManager(secret string, maxAge time.Duration, secure bool) *SessionManager {
	authKey := createSessionKey(secret)
	encKey := createSessionKey(secret + "encryption")
	store := sessions.NewCookieStore(authKey, encKey)

	maxAgeSeconds := DefaultSessionMaxAgeSeconds
	if maxAge > 0 {
		maxAgeSeconds = int(maxAge.Seconds())
	}
	store.Options = buildSessionOptions(secure, maxAgeSeconds)
	for _, codec := range store.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxLength(MaxSessionSizeBytes)
		}
	}

	GetLogger().Debug("cookie session store configured",
		logger.Int("max_age_seconds", maxAgeSeconds),
		logger.Bool("secure", secure))

	return &SessionManager{store: store, name: SessionCookieName}
}

// createSessionKey derives a 32 byte key from a seed string, the size AES-256 requires.
func createSessionKey(seed string) []byte {
	sum := sha256.Sum256([]byte(seed))
	return sum[:]
}

// buildSessionOptions creates session options with standard security settings.
func buildSessionOptions(secure bool, maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Login stores userID in the session cookie.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, userID uint) error {
	// A decode failure yields a fresh session, which is what login wants.
	session, _ := m.store.Get(r, m.name)
	session.Values[sessionUserIDKey] = userID
	if err := session.Save(r, w); err != nil {
		return sessionError(err, "save")
	}
	return nil
}

// UserID returns the logged-in user ID, if any.
func (m *SessionManager) UserID(r *http.Request) (uint, bool) {
	session, err := m.store.Get(r, m.name)
	if err != nil || session.IsNew {
		return 0, false
	}
	id, ok := session.Values[sessionUserIDKey].(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// Logout expires the session cookie.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, m.name)
	session.Options.MaxAge = -1
	delete(session.Values, sessionUserIDKey)
	if err := session.Save(r, w); err != nil {
		return sessionError(err, "clear")
	}
	return nil
}

func sessionError(err error, operation string) error {
	return errors.New(err).
		Component("security").
		Category(errors.CategoryAuthentication).
		Context("operation", "session_"+operation).
		Build()
}
