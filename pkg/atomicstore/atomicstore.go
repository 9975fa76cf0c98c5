// Package atomicstore wraps the store-native atomic operations the ledgers
// rely on: transactional read-modify-write with conflict retry, atomic
// column increments, insert-if-absent and set-merge upserts.
package atomicstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxAttempts bounds the conflict retry loop. Exhaustion surfaces as
// ErrRetryExhausted; the effect may or may not have applied, so callers
// must re-invoke with the same idempotency key rather than assume a no-op.
const maxAttempts = 3

// ErrRetryExhausted is returned when a transaction kept conflicting.
var ErrRetryExhausted = errors.New("transaction_retry_exhausted")

// RunInTransaction executes fn inside a single database transaction,
// retrying on write conflicts up to maxAttempts.
func RunInTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil || !IsConflict(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrRetryExhausted, err)
}

// IsConflict reports whether err is a transient write conflict worth retrying.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "could not serialize"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "sqlite_busy"):
		return true
	}
	return false
}

// LockForUpdate applies row-level locking on dialects that support it.
// SQLite serializes writers on its own, so the clause is skipped there.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	switch tx.Dialector.Name() {
	case "postgres", "mysql":
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	default:
		return tx
	}
}

// Increment atomically adds delta to a numeric column on rows matching query.
// Returns the number of rows touched.
func Increment(tx *gorm.DB, model any, query map[string]any, column string, delta int64) (int64, error) {
	stmt := tx.Model(model).Where(query).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	return stmt.RowsAffected, stmt.Error
}

// InsertOnce inserts value unless a row with the same primary key already
// exists. Returns false when the row was already present.
func InsertOnce(tx *gorm.DB, value any) (bool, error) {
	stmt := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(value)
	if stmt.Error != nil {
		return false, stmt.Error
	}
	return stmt.RowsAffected > 0, nil
}

// SetMerge upserts value, merging only the named columns on conflict so
// concurrent writers touching different fields do not clobber each other.
func SetMerge(tx *gorm.DB, value any, conflictColumns []string, mergeColumns []string) error {
	cols := make([]clause.Column, 0, len(conflictColumns))
	for _, c := range conflictColumns {
		cols = append(cols, clause.Column{Name: c})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   cols,
		DoUpdates: clause.AssignmentColumns(mergeColumns),
	}).Create(value).Error
}
