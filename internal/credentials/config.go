// Package credentials obtains and persists the OAuth2 user token used to reach
// the Google Sheets API.
package credentials

import (
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/errors"
)

// DefaultScopes grants read/write access to spreadsheets and Drive files.
var DefaultScopes = []string{conf.ScopeSpreadsheets, conf.ScopeDrive}

// LoadConfig reads an OAuth2 client secret file as downloaded from the Google
// Cloud console. DefaultScopes apply when no scopes are given.
func LoadConfig(credentialsFile string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.New(err).
			Component("credentials").
			Category(errors.CategoryConfiguration).
			Context("credentials_file", credentialsFile).
			Build()
	}

	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, errors.New(err).
			Component("credentials").
			Category(errors.CategoryConfiguration).
			Context("credentials_file", credentialsFile).
			Build()
	}
	return cfg, nil
}
