// Package repository implements the MySQL record store.  Sentinel errors
// defined here let the service layer tell missing rows and conflicting
// state apart from transport failures.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.  It wraps
// sql.ErrNoRows so callers checking either value match.
var ErrNotFound = fmt.Errorf("not found: %w", sql.ErrNoRows)

// ErrConflict is returned when a write cannot be applied because of the
// current state of the row, such as a status transition from a terminal
// payment status or a duplicate junction link.
var ErrConflict = errors.New("conflict")

var (
	ErrEmailExists = errors.New("email already exists")
	ErrPhoneExists = errors.New("phone number already exists")
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlMissingParentFK = 1452
)

func mysqlCode(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// isDuplicate reports a unique key violation.
func isDuplicate(err error) bool {
	if mysqlCode(err) == mysqlDuplicateEntry {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "1062")
}

// isMissingParent reports a foreign key violation on insert.
func isMissingParent(err error) bool {
	return mysqlCode(err) == mysqlMissingParentFK
}

// notFound maps sql.ErrNoRows to ErrNotFound and passes other errors
// through.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// expectOne turns a zero rows-affected result into ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
