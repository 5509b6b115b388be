package authorize

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/credentials"
)

// setupAuthorize writes client secrets that point at a fake token endpoint
// and returns settings using them.
func setupAuthorize(t *testing.T) *conf.Settings {
	t.Helper()

	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "consent-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"access_token":"fresh-access","token_type":"Bearer","refresh_token":"fresh-refresh","expires_in":3600}`)
	}))
	t.Cleanup(tokens.Close)

	dir := t.TempDir()
	secrets := fmt.Sprintf(`{"installed": {
		"client_id": "client-id.apps.googleusercontent.com",
		"client_secret": "client-secret",
		"auth_uri": "https://accounts.google.com/o/oauth2/auth",
		"token_uri": %q,
		"redirect_uris": ["http://localhost"]
	}}`, tokens.URL)
	credentialsFile := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(credentialsFile, []byte(secrets), 0o600))

	settings := &conf.Settings{}
	settings.Sheets.CredentialsFile = credentialsFile
	settings.Sheets.TokenFile = filepath.Join(dir, "token.json")
	settings.Sheets.Scopes = []string{conf.ScopeSpreadsheets}
	return settings
}

// answerConsent replaces the browser with one that follows the consent URL's
// redirect with an authorization code.
func answerConsent(t *testing.T) *atomic.Int32 {
	t.Helper()

	var opened atomic.Int32
	previous := launcher
	launcher = credentials.LauncherFunc(func(authURL string) error {
		opened.Add(1)
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		callback := q.Get("redirect_uri") + "?code=consent-code&state=" + url.QueryEscape(q.Get("state"))
		go func() {
			resp, err := http.Get(callback)
			if err == nil {
				_ = resp.Body.Close()
			}
		}()
		return nil
	})
	t.Cleanup(func() { launcher = previous })
	return &opened
}

func run(t *testing.T, settings *conf.Settings, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := Command(settings)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestAuthorizeSavesToken(t *testing.T) {
	settings := setupAuthorize(t)
	opened := answerConsent(t)

	out, err := run(t, settings)
	require.NoError(t, err)
	assert.Equal(t, int32(1), opened.Load())
	assert.Contains(t, out, "✅ Token saved to "+settings.TokenFilePath())

	token, err := credentials.TokenFile{Path: settings.TokenFilePath()}.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token.AccessToken)
	assert.Equal(t, "fresh-refresh", token.RefreshToken)
}

func TestAuthorizeKeepsValidToken(t *testing.T) {
	settings := setupAuthorize(t)
	opened := answerConsent(t)

	store := credentials.TokenFile{Path: settings.TokenFilePath()}
	require.NoError(t, store.Save(&oauth2.Token{AccessToken: "saved-access", Expiry: time.Now().Add(time.Hour)}))

	_, err := run(t, settings)
	require.NoError(t, err)
	assert.Zero(t, opened.Load(), "a valid saved token needs no consent")

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "saved-access", token.AccessToken)
}

func TestAuthorizeForceReplacesToken(t *testing.T) {
	settings := setupAuthorize(t)
	opened := answerConsent(t)

	store := credentials.TokenFile{Path: settings.TokenFilePath()}
	require.NoError(t, store.Save(&oauth2.Token{AccessToken: "saved-access", Expiry: time.Now().Add(time.Hour)}))

	_, err := run(t, settings, "--force")
	require.NoError(t, err)
	assert.Equal(t, int32(1), opened.Load())

	token, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", token.AccessToken)
}

func TestAuthorizeForceWithoutSavedToken(t *testing.T) {
	settings := setupAuthorize(t)
	answerConsent(t)

	_, err := run(t, settings, "--force")
	require.NoError(t, err)
	assert.FileExists(t, settings.TokenFilePath())
}
