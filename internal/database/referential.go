package database

import (
	"context"
	"fmt"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
)

// reference is a nullable foreign key pointing at the row being deleted
type reference struct {
	table  string
	column string
	// blocking references refuse the delete unless forced; the others are
	// always detached
	blocking bool
}

// deleteReferenced deletes one row by id after resolving every reference to
// it: blocking references with dependents refuse the delete unless force is
// set, and all references are set to NULL before the row goes away. q must be
// a transaction.
func deleteReferenced(ctx context.Context, q Queryer, entity, table string, id int64, force bool, refs []reference) error {
	for _, ref := range refs {
		if !ref.blocking || force {
			continue
		}
		var count int
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`, ref.table, ref.column)
		if err := q.GetContext(ctx, &count, query, id); err != nil {
			return fmt.Errorf("failed to count %s referencing %s: %w", ref.table, entity, err)
		}
		if count > 0 {
			return &apperr.ConflictError{
				Entity:     entity,
				ID:         fmt.Sprint(id),
				Dependent:  ref.table,
				Dependents: count,
			}
		}
	}

	for _, ref := range refs {
		query := fmt.Sprintf(`UPDATE %s SET %s = NULL WHERE %s = $1`, ref.table, ref.column, ref.column)
		if _, err := q.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to detach %s from %s: %w", ref.table, entity, err)
		}
	}

	result, err := q.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", entity, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound(entity, id)
	}
	return nil
}

// expectOneRow turns a zero-row update into NotFound
func expectOneRow(rows int64, entity string, key interface{}) error {
	if rows == 0 {
		return apperr.NotFound(entity, key)
	}
	return nil
}
