package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"smartexpense/internal/core"
)

// constraintErrors maps the constraint families an operation can hit to
// the typed error reported to callers.
type constraintErrors struct {
	unique     *core.Error
	foreignKey *core.Error
	notFound   *core.Error
}

// translate wraps err with op, replacing SQLite constraint failures and
// missing rows with typed errors. Matching uses result codes, never message text.
func translate(op string, err error, m constraintErrors) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && m.notFound != nil {
		return fmt.Errorf("%s: %w", op, m.notFound)
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			if m.unique != nil {
				return fmt.Errorf("%s: %w", op, m.unique)
			}
			return &core.Error{Kind: core.KindConflict, Op: op, Err: err}
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3.SQLITE_CONSTRAINT_TRIGGER:
			// ON DELETE RESTRICT reports through the trigger code.
			if m.foreignKey != nil {
				return fmt.Errorf("%s: %w", op, m.foreignKey)
			}
			return &core.Error{Kind: core.KindConflict, Op: op, Err: err}
		}
		if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return &core.Error{Kind: core.KindConflict, Op: op, Err: err}
		}
	}
	return core.Internal(op, err)
}
