package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// MySQL error numbers and PostgreSQL SQLSTATE codes recognized by the helpers.
const (
	mysqlProcedureNotFound = 1305 // ER_SP_DOES_NOT_EXIST
	pgUndefinedFunction    = "42883"
	pgSyntaxError          = "42601"
	mysqlParseError        = 1064
)

// Code returns the driver specific error code carried by err, or "".
func Code(err error) string {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsDriverError reports whether err was raised by the database or its driver
// rather than by dbproc itself.
func IsDriverError(err error) bool {
	if err == nil {
		return false
	}
	if Code(err) != "" {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, mysql.ErrInvalidConn)
}

// IsUndefinedProcedure reports whether err says the called procedure does not exist.
func IsUndefinedProcedure(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlProcedureNotFound
	}
	code := Code(err)
	return code == pgUndefinedFunction
}

// IsSyntaxError reports whether err is a server side SQL syntax error.
func IsSyntaxError(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlParseError
	}
	return Code(err) == pgSyntaxError
}
