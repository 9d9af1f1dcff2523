package core

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type LogLevel int

const (
	LogLevelSilent LogLevel = iota + 1
	LogLevelError
	LogLevelWarn
	LogLevelInfo
)

func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "error":
		return LogLevelError
	case "warn":
		return LogLevelWarn
	case "info":
		return LogLevelInfo
	default:
		return LogLevelSilent
	}
}

func (l LogLevel) gorm() logger.LogLevel {
	switch l {
	case LogLevelError:
		return logger.Error
	case LogLevelWarn:
		return logger.Warn
	case LogLevelInfo:
		return logger.Info
	default:
		return logger.Silent
	}
}

type Options struct {
	Dialect         string
	DSN             string
	MaxConnections  int
	ConnMaxLifetime time.Duration
	MultiTenant     bool
	LogLevel        LogLevel
}

// Release returns a tenant connection to the pool. It is always safe to call.
type Release func()

type DatabaseManager struct {
	SqlDB       *sql.DB
	LogLevel    LogLevel
	Dialect     string
	MultiTenant bool

	root *gorm.DB
}

var schemaPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func dialector(dialect, dsn string) (gorm.Dialector, error) {
	switch dialect {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(SQLiteDSN(dsn)), nil
	}
	return nil, fmt.Errorf("unsupported dialect %q", dialect)
}

// SQLiteDSN makes every transaction take the write lock at BEGIN and wait up to five
// seconds for it. Parameters already present in dsn are kept.
func SQLiteDSN(dsn string) string {
	params := []string{"_txlock=immediate", "_busy_timeout=5000"}
	for _, p := range params {
		name := p[:strings.Index(p, "=")+1]
		if strings.Contains(dsn, name) {
			continue
		}
		sep := "&"
		if !strings.Contains(dsn, "?") {
			sep = "?"
		}
		dsn += sep + p
	}
	return dsn
}

// New opens the global pool. For multi-tenant MySQL the dsn should NOT include a schema;
// each request selects its schema with `USE schema`.
func New(opts Options) (*DatabaseManager, error) {
	if opts.MultiTenant && opts.Dialect != "mysql" {
		return nil, fmt.Errorf("multi-tenant mode requires mysql, got %s", opts.Dialect)
	}

	d, err := dialector(opts.Dialect, opts.DSN)
	if err != nil {
		return nil, err
	}

	root, err := gorm.Open(d, &gorm.Config{
		Logger: logger.Default.LogMode(opts.LogLevel.gorm()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	sqlDB, err := root.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if opts.MaxConnections > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxConnections)
		sqlDB.SetMaxIdleConns(opts.MaxConnections)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping pool: %w", err)
	}

	return &DatabaseManager{
		SqlDB:       sqlDB,
		LogLevel:    opts.LogLevel,
		Dialect:     opts.Dialect,
		MultiTenant: opts.MultiTenant,
		root:        root,
	}, nil
}

// NewFromGorm wraps an already opened single-database connection.
func NewFromGorm(db *gorm.DB) *DatabaseManager {
	sqlDB, _ := db.DB()
	return &DatabaseManager{SqlDB: sqlDB, Dialect: db.Dialector.Name(), root: db}
}

// TenantSchema maps a request host to its schema, e.g. "acme.backoffice.net" -> "acme".
func TenantSchema(host string) string {
	parts := strings.Split(host, ".")
	return parts[0]
}

// GetDB returns a session for the tenant addressed by host. In single-database mode the
// host is ignored and the shared pool is used.
func (dm *DatabaseManager) GetDB(ctx context.Context, host string) (*gorm.DB, Release, error) {
	if !dm.MultiTenant {
		return dm.root.WithContext(WithTenant(ctx, host)), func() {}, nil
	}

	schema := TenantSchema(host)
	if !schemaPattern.MatchString(schema) {
		return nil, nil, fmt.Errorf("invalid tenant schema %q", schema)
	}

	// Get a dedicated connection from pool
	conn, err := dm.SqlDB.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get conn: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "USE `"+schema+"`"); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to use schema %s: %w", schema, err)
	}

	// Wrap this single connection into GORM
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: conn}), &gorm.Config{
		Logger: logger.Default.LogMode(dm.LogLevel.gorm()),
	})
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	return db.WithContext(WithTenant(ctx, host)), func() { conn.Close() }, nil
}

// Close closes the global pool
func (dm *DatabaseManager) Close() error {
	return dm.SqlDB.Close()
}

func (dm *DatabaseManager) Exec(ctx context.Context, host string, fn func(db *gorm.DB) error) error {
	db, release, err := dm.GetDB(ctx, host)
	if err != nil {
		return err
	}
	defer release()

	return fn(db)
}

// Tenants lists the hosts the background jobs should visit.
func (dm *DatabaseManager) Tenants(ctx context.Context) ([]string, error) {
	if !dm.MultiTenant {
		return []string{""}, nil
	}

	rows, err := dm.SqlDB.QueryContext(ctx, "SHOW DATABASES")
	if err != nil {
		return nil, fmt.Errorf("failed to query databases: %w", err)
	}
	defer rows.Close()

	var databases []string
	for rows.Next() {
		var db string
		if err := rows.Scan(&db); err != nil {
			return nil, fmt.Errorf("failed to scan database name: %w", err)
		}

		// Filter out system databases
		switch db {
		case "information_schema", "mysql", "performance_schema", "sys":
			continue
		}
		databases = append(databases, db)
	}

	return databases, rows.Err()
}
