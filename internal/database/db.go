package database

import (
	"context"
	"database/sql"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options describes how to reach the MySQL server.
type Options struct {
	User         string
	Pass         string
	Host         string
	Port         string
	Name         string
	MaxOpenConns int
	LockWait     time.Duration // innodb_lock_wait_timeout for booking transactions
}

// DSN builds the driver connection string.  parseTime+loc=UTC map DATE and
// DATETIME columns to UTC time.Time values.
func (o Options) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(o.Host, o.Port)
	cfg.DBName = o.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	if o.LockWait > 0 {
		cfg.Params["innodb_lock_wait_timeout"] = strconv.Itoa(lockWaitSeconds(o.LockWait))
	}
	return cfg.FormatDSN()
}

// lockWaitSeconds rounds d up to whole seconds.  MySQL accepts 1 at least.
func lockWaitSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}

// Open connects to MySQL and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", o.DSN())
	if err != nil {
		return nil, err
	}

	maxOpen := o.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
