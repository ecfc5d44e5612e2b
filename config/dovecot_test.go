package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseDirective(t *testing.T) {
	content := `# Database driver: mysql, pgsql, sqlite
# connect = "host=commented"
driver = mysql
default_pass_scheme = SHA512-CRYPT
iterate_query = SELECT username FROM accounts
connect = "host=/tmp/x.sock user=u password=p dbname=d"
connect = "host=second"
`

	value, found, err := ParseDirective(strings.NewReader(content), "connect")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "host=/tmp/x.sock user=u password=p dbname=d", value)

	value, found, err = ParseDirective(strings.NewReader(content), "driver")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "mysql", value)

	_, found, err = ParseDirective(strings.NewReader(content), "password_query")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestParseDirective_KeyMustMatchExactly(t *testing.T) {
	content := "connection_timeout = 5\nconnect=host=a user=b\n"

	value, found, err := ParseDirective(strings.NewReader(content), "connect")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "host=a user=b", value)
}

func TestParseConnectParams(t *testing.T) {
	params, err := ParseConnectParams("host=/tmp/x.sock user=u password=p dbname=d")
	require.NoError(t, err)
	assert.Equal(t, ConnectParams{
		"host":     "/tmp/x.sock",
		"user":     "u",
		"password": "p",
		"dbname":   "d",
	}, params)
}

func TestParseConnectParams_ValueMayContainEquals(t *testing.T) {
	params, err := ParseConnectParams("host=db password=a=b")
	require.NoError(t, err)
	assert.Equal(t, "a=b", params["password"])
}

func TestParseConnectParams_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "host=db user", "=value"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseConnectParams(in)
			assert.True(t, errors.Is(err, ErrMalformedParams), "got %v", err)
		})
	}
}

func TestReadSQLConfig(t *testing.T) {
	path := writeFile(t, "dovecot-sql.conf", `connect = "host=/tmp/x.sock user=u password=p dbname=d"`+"\n")

	sc, err := ReadSQLConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, sc.Path)
	assert.Equal(t, DriverMySQL, sc.Driver)
	assert.Equal(t, ConnectParams{
		"host":     "/tmp/x.sock",
		"user":     "u",
		"password": "p",
		"dbname":   "d",
	}, sc.Params)
}

func TestReadSQLConfig_SQLiteKeepsPath(t *testing.T) {
	path := writeFile(t, "dovecot-sql.conf", "driver = sqlite\nconnect = /var/lib/dovecot/users.db\n")

	sc, err := ReadSQLConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, sc.Driver)
	assert.Equal(t, "/var/lib/dovecot/users.db", sc.Connect)
	assert.Nil(t, sc.Params)
}

func TestReadSQLConfig_Errors(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := ReadSQLConfig("")
		assert.ErrorIs(t, err, ErrEmptyPath)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadSQLConfig(filepath.Join(t.TempDir(), "absent.conf"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("no connect line", func(t *testing.T) {
		path := writeFile(t, "dovecot-sql.conf", "driver = mysql\n# connect = \"host=x\"\n")
		_, err := ReadSQLConfig(path)
		assert.ErrorIs(t, err, ErrNoConnect)
	})

	t.Run("empty connect value", func(t *testing.T) {
		path := writeFile(t, "dovecot-sql.conf", "connect = \"\"\n")
		_, err := ReadSQLConfig(path)
		assert.ErrorIs(t, err, ErrNoConnect)
	})

	t.Run("malformed params", func(t *testing.T) {
		path := writeFile(t, "dovecot-sql.conf", "connect = \"host=/tmp/x.sock dovecot\"\n")
		_, err := ReadSQLConfig(path)
		assert.ErrorIs(t, err, ErrMalformedParams)
	})
}
