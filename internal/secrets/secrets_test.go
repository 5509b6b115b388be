package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/itemstore/internal/errors"
)

func TestExpandString(t *testing.T) {
	t.Setenv("ITEMSTORE_TEST_USER", "admin")
	t.Setenv("ITEMSTORE_TEST_PASS", "s3cret")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty", input: "", want: ""},
		{name: "literal", input: "plain-value", want: "plain-value"},
		{name: "single variable", input: "${ITEMSTORE_TEST_PASS}", want: "s3cret"},
		{name: "embedded variables", input: "${ITEMSTORE_TEST_USER}:${ITEMSTORE_TEST_PASS}@db", want: "admin:s3cret@db"},
		{name: "fallback unused", input: "${ITEMSTORE_TEST_USER:-guest}", want: "admin"},
		{name: "fallback used", input: "${ITEMSTORE_TEST_UNSET:-guest}", want: "guest"},
		{name: "empty fallback", input: "${ITEMSTORE_TEST_UNSET:-}", want: ""},
		{name: "missing variable", input: "${ITEMSTORE_TEST_UNSET}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "ITEMSTORE_TEST_UNSET")
				assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeSecret(t *testing.T, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func TestReadFile(t *testing.T) {
	t.Run("trims trailing newlines", func(t *testing.T) {
		got, err := ReadFile(writeSecret(t, " pass word \r\n", 0o600))
		require.NoError(t, err)
		assert.Equal(t, " pass word ", got)
	})

	t.Run("permissive mode still reads", func(t *testing.T) {
		got, err := ReadFile(writeSecret(t, "token\n", 0o644))
		require.NoError(t, err)
		assert.Equal(t, "token", got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "absent"))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
	})

	t.Run("directory", func(t *testing.T) {
		_, err := ReadFile(t.TempDir())
		require.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ReadFile(writeSecret(t, "\n", 0o600))
		require.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		big := make([]byte, maxSecretFileSize+1)
		for i := range big {
			big[i] = 'x'
		}
		_, err := ReadFile(writeSecret(t, string(big), 0o600))
		require.Error(t, err)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := ReadFile("")
		require.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	t.Setenv("ITEMSTORE_TEST_DSN", "https://key@example.invalid/1")

	t.Run("file wins over value", func(t *testing.T) {
		got, err := Resolve(writeSecret(t, "from-file", 0o600), "${ITEMSTORE_TEST_DSN}")
		require.NoError(t, err)
		assert.Equal(t, "from-file", got)
	})

	t.Run("value is expanded", func(t *testing.T) {
		got, err := Resolve("", "${ITEMSTORE_TEST_DSN}")
		require.NoError(t, err)
		assert.Equal(t, "https://key@example.invalid/1", got)
	})

	t.Run("nothing set", func(t *testing.T) {
		got, err := Resolve("", "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMustResolve(t *testing.T) {
	_, err := MustResolve("mysql password", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql password")

	got, err := MustResolve("mysql password", "", "literal")
	require.NoError(t, err)
	assert.Equal(t, "literal", got)
}
