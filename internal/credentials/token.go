package credentials

import (
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/tphakala/itemstore/internal/errors"
)

const (
	tokenFileMode = 0o600
	tokenDirMode  = 0o700
)

// ErrNoToken is returned by TokenFile.Load when no token has been saved yet.
var ErrNoToken = errors.NewStd("no saved token")

// TokenFile stores one oauth2.Token as JSON.
type TokenFile struct {
	Path string
}

// Load reads the saved token.
func (f TokenFile) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, f.fileError(err, "read")
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, f.fileError(err, "decode")
	}
	return token, nil
}

// Save writes token to a temporary file in the same directory, then renames
// it over Path. The file is readable by the owner only.
func (f TokenFile) Save(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return f.fileError(err, "encode")
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, tokenDirMode); err != nil {
		return f.fileError(err, "mkdir")
	}

	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return f.fileError(err, "create")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return f.fileError(err, "write")
	}
	if err := tmp.Chmod(tokenFileMode); err != nil {
		_ = tmp.Close()
		return f.fileError(err, "chmod")
	}
	if err := tmp.Close(); err != nil {
		return f.fileError(err, "close")
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return f.fileError(err, "rename")
	}

	GetLogger().Debug("token saved")
	return nil
}

func (f TokenFile) fileError(err error, operation string) error {
	return errors.New(err).
		Component("credentials").
		Category(errors.CategoryFileIO).
		Context("operation", operation).
		Context("token_file", f.Path).
		Build()
}
