package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kdimtricp/cvat-api/internal/config"
	"github.com/kdimtricp/cvat-api/internal/logging"
	"github.com/kdimtricp/cvat-api/migrations"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

type DB struct {
	conn   *sql.DB
	orm    *gorm.DB
	dbType string
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

// ConfigFrom maps loaded settings onto a connection config.
func ConfigFrom(c config.DatabaseConfig) Config {
	return Config{
		Type:       c.Type,
		Host:       c.Host,
		Port:       c.Port,
		User:       c.User,
		Password:   c.Password,
		Name:       c.Name,
		SQLitePath: c.SQLitePath,
	}
}

func NewDB(cfg Config) (*DB, error) {
	var conn *sql.DB
	var dialector gorm.Dialector
	var err error

	switch cfg.Type {
	case TypeSQLite:
		conn, err = sql.Open("sqlite3", cfg.SQLitePath)
		if err == nil {
			// sqlite allows a single writer
			conn.SetMaxOpenConns(1)
			dialector = &sqlite.Dialector{Conn: conn}
		}
	case TypePostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
		conn, err = sql.Open("pgx", dsn)
		if err == nil {
			dialector = postgres.New(postgres.Config{Conn: conn})
		}
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	orm, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	return &DB{conn: conn, orm: orm, dbType: cfg.Type}, nil
}

// RunMigrations applies the embedded schema for this database type.
func (db *DB) RunMigrations() error {
	return NewMigrator(db.conn, db.dbType).Run(migrations.FS)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) GORM() *gorm.DB {
	return db.orm
}

func (db *DB) Type() string {
	return db.dbType
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("database ping failed")
		return err
	}
	return nil
}
