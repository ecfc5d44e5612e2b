package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrEmptyPath       = errors.New("sql config path is empty")
	ErrNoConnect       = errors.New("no connect directive found")
	ErrMalformedParams = errors.New("bad format for connection parameters")
)

// Dovecot SQL drivers. The driver directive is optional and defaults to mysql.
const (
	DriverMySQL  = "mysql"
	DriverPgSQL  = "pgsql"
	DriverSQLite = "sqlite"
)

// ConnectParams are the key=value pairs of a connect directive.
type ConnectParams map[string]string

// SQLConfig is the part of dovecot-sql.conf the expunge job needs.
type SQLConfig struct {
	Path    string
	Driver  string
	Connect string        // raw connect value, unquoted
	Params  ConnectParams // nil for sqlite, whose connect value is a file path
}

// ParseDirective returns the value of the first "key = value" line for key.
// Lines starting with '#' and lines without '=' are skipped. The value is
// stripped of surrounding whitespace and double quotes.
func ParseDirective(r io.Reader, key string) (string, bool, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}

		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		if strings.TrimSpace(k) == key {
			return strings.Trim(v, " \t\"\r\n"), true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, err
	}
	return "", false, nil
}

// ParseConnectParams splits "host=/run/mysqld.sock user=dovecot ..." into a map.
// Every space-separated token must contain '='; the first '=' separates key from value.
func ParseConnectParams(s string) (ConnectParams, error) {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return nil, ErrMalformedParams
	}

	params := make(ConnectParams, len(tokens))
	for _, token := range tokens {
		k, v, ok := strings.Cut(token, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: token %q is not key=value", ErrMalformedParams, token)
		}
		params[k] = v
	}
	return params, nil
}

// ReadSQLConfig reads the connect and driver directives from a Dovecot SQL config file.
func ReadSQLConfig(path string) (*SQLConfig, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	connect, found, err := ParseDirective(bytes.NewReader(content), "connect")
	if err != nil {
		return nil, err
	}
	if !found || connect == "" {
		return nil, fmt.Errorf("%w in config file %s", ErrNoConnect, path)
	}

	driver, _, err := ParseDirective(bytes.NewReader(content), "driver")
	if err != nil {
		return nil, err
	}
	if driver == "" {
		driver = DriverMySQL
	}

	sc := &SQLConfig{
		Path:    path,
		Driver:  driver,
		Connect: connect,
	}
	if driver == DriverSQLite {
		return sc, nil
	}

	sc.Params, err = ParseConnectParams(connect)
	if err != nil {
		return nil, err
	}
	return sc, nil
}
