package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/migadu/dovecot-expunge/config"
	_ "modernc.org/sqlite"
)

// requiredParams must be present in a mysql or pgsql connect directive.
var requiredParams = []string{"host", "user", "password", "dbname"}

// Database is a single read-only connection to Dovecot's SQL database.
type Database struct {
	db     *sql.DB
	driver string
}

// Open connects to the database described by sc and verifies the connection.
func Open(ctx context.Context, sc *config.SQLConfig) (*Database, error) {
	sqlDB, err := openDB(sc)
	if err != nil {
		return nil, err
	}

	// One query per run; a second connection is never needed.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	return &Database{db: sqlDB, driver: sc.Driver}, nil
}

// NewFromDB wraps an existing handle. driver selects the SQL dialect.
func NewFromDB(sqlDB *sql.DB, driver string) *Database {
	return &Database{db: sqlDB, driver: driver}
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Driver returns the Dovecot driver name the connection was opened with.
func (d *Database) Driver() string {
	return d.driver
}

func openDB(sc *config.SQLConfig) (*sql.DB, error) {
	switch sc.Driver {
	case config.DriverMySQL:
		dsn, err := MySQLDSN(sc.Params)
		if err != nil {
			return nil, err
		}
		return sql.Open("mysql", dsn)

	case config.DriverPgSQL:
		connConfig, err := PgSQLConfig(sc.Params)
		if err != nil {
			return nil, err
		}
		return stdlib.OpenDB(*connConfig), nil

	case config.DriverSQLite:
		if sc.Connect == "" {
			return nil, fmt.Errorf("%w: sqlite database path", ErrMissingParam)
		}
		return sql.Open("sqlite", sc.Connect)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, sc.Driver)
	}
}

func checkRequired(params config.ConnectParams) error {
	var missing []string
	for _, key := range requiredParams {
		if _, ok := params[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingParam, strings.Join(missing, ", "))
	}
	return nil
}

// MySQLDSN builds a go-sql-driver DSN. A host starting with '/' is a unix
// socket; anything else is a TCP host, with port defaulting to 3306.
func MySQLDSN(params config.ConnectParams) (string, error) {
	if err := checkRequired(params); err != nil {
		return "", err
	}

	cfg := mysql.NewConfig()
	cfg.User = params["user"]
	cfg.Passwd = params["password"]
	cfg.DBName = params["dbname"]

	host := params["host"]
	if strings.HasPrefix(host, "/") {
		cfg.Net = "unix"
		cfg.Addr = host
	} else {
		port := params["port"]
		if port == "" {
			port = "3306"
		}
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(host, port)
	}

	return cfg.FormatDSN(), nil
}

// PgSQLConfig builds a pgx connection config from libpq-style parameters.
// Every parameter is passed through, so sslmode, port and friends work as in Dovecot.
func PgSQLConfig(params config.ConnectParams) (*pgx.ConnConfig, error) {
	if err := checkRequired(params); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quotePgValue(params[k]))
	}

	connConfig, err := pgx.ParseConfig(strings.Join(parts, " "))
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection parameters: %w", err)
	}
	return connConfig, nil
}

func quotePgValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
