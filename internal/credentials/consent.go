package credentials

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cli/browser"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

const (
	defaultCallbackAddr   = "127.0.0.1:0"
	callbackShutdownGrace = 5 * time.Second
	callbackHeaderTimeout = 10 * time.Second
)

// Launcher opens a URL in the user's web browser.
type Launcher interface {
	OpenURL(url string) error
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(url string) error

// OpenURL calls f(url).
func (f LauncherFunc) OpenURL(url string) error { return f(url) }

// SystemBrowser opens URLs with the platform default browser.
var SystemBrowser Launcher = LauncherFunc(browser.OpenURL)

// LocalServerConsent runs the installed-app flow: it serves the OAuth2
// redirect on a loopback listener, opens the consent page and waits for the
// callback carrying the authorization code.
type LocalServerConsent struct {
	// Addr is the callback listen address. Defaults to 127.0.0.1 on a random port.
	Addr string
	// Browser opens the consent page. Nil only prints the URL.
	Browser Launcher
	// Out receives the consent URL. Defaults to stderr.
	Out io.Writer
}

type callbackResult struct {
	code string
	err  error
}

// Authorize implements Consent. It returns when the callback arrives or ctx
// is done, and always shuts the callback listener down before returning.
func (c *LocalServerConsent) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	addr := c.Addr
	if addr == "" {
		addr = defaultCallbackAddr
	}
	out := c.Out
	if out == nil {
		out = os.Stderr
	}
	log := GetLogger()

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, consentError(err, "listen")
	}

	flowCfg := *cfg
	flowCfg.RedirectURL = "http://" + listener.Addr().String() + "/"
	state := uuid.NewString()

	results := make(chan callbackResult, 1)
	var once sync.Once
	deliver := func(r callbackResult) {
		once.Do(func() { results <- r })
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "Authorization was denied. You can close this window.", http.StatusForbidden)
			deliver(callbackResult{err: consentError(errors.NewStd("authorization denied: "+q.Get("error")), "callback")})
		case q.Get("state") != state:
			http.Error(w, "State mismatch. You can close this window.", http.StatusBadRequest)
			deliver(callbackResult{err: consentError(errors.NewStd("state mismatch in OAuth2 callback"), "callback")})
		case q.Get("code") == "":
			http.Error(w, "Missing authorization code.", http.StatusBadRequest)
		default:
			_, _ = io.WriteString(w, "Authorization complete. You can close this window.")
			deliver(callbackResult{code: q.Get("code")})
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: callbackHeaderTimeout}
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			deliver(callbackResult{err: consentError(err, "serve")})
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), callbackShutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("callback server shutdown failed", logger.Error(err))
		}
		<-served
	}()

	authURL := flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	_, _ = fmt.Fprintf(out, "Open the following URL to authorize access to Google Sheets:\n\n  %s\n\n", authURL)
	if c.Browser != nil {
		if err := c.Browser.OpenURL(authURL); err != nil {
			log.Warn("could not open browser", logger.Error(err))
		}
	}
	log.Info("waiting for OAuth2 callback", logger.String("redirect_url", flowCfg.RedirectURL))

	var result callbackResult
	select {
	case <-ctx.Done():
		return nil, consentError(ctx.Err(), "wait")
	case result = <-results:
	}
	if result.err != nil {
		return nil, result.err
	}

	token, err := flowCfg.Exchange(ctx, result.code)
	if err != nil {
		return nil, consentError(err, "exchange")
	}
	return token, nil
}

func consentError(err error, operation string) error {
	return errors.New(err).
		Component("credentials").
		Category(errors.CategoryAuthentication).
		Context("operation", operation).
		Build()
}

var _ Consent = (*LocalServerConsent)(nil)
