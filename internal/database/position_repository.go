package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rfidaccess/access-control-backend/internal/models"
)

var positionReferences = []reference{
	{table: "employees", column: "position_id", blocking: true},
	{table: "events", column: "position_id"},
}

// PositionRepository handles database operations for positions
type PositionRepository struct {
	db DB
}

// NewPositionRepository creates a new PositionRepository
func NewPositionRepository(db DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a position and sets its ID, inside a transaction like
// TeamRepository.Create
func (r *PositionRepository) Create(ctx context.Context, position *models.Position) error {
	query := `
		INSERT INTO positions (title, competence_level, description, requirements)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.WithTx(ctx, func(q Queryer) error {
		return q.GetContext(ctx, &position.ID, query,
			position.Title, position.CompetenceLevel, position.Description, position.Requirements,
		)
	})
	if err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

// GetByID retrieves a position by ID, or nil when absent
func (r *PositionRepository) GetByID(ctx context.Context, id int64) (*models.Position, error) {
	query := `
		SELECT id, title, competence_level, description, requirements
		FROM positions
		WHERE id = $1
	`
	var position models.Position
	err := r.db.GetContext(ctx, &position, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return &position, nil
}

// List retrieves every position ordered by title
func (r *PositionRepository) List(ctx context.Context) ([]models.Position, error) {
	query := `
		SELECT id, title, competence_level, description, requirements
		FROM positions
		ORDER BY title, id
	`
	positions := []models.Position{}
	if err := r.db.SelectContext(ctx, &positions, query); err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return positions, nil
}

// Update writes every column of position
func (r *PositionRepository) Update(ctx context.Context, position *models.Position) error {
	query := `
		UPDATE positions
		SET title = $2, competence_level = $3, description = $4, requirements = $5
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		position.ID, position.Title, position.CompetenceLevel, position.Description, position.Requirements,
	)
	if err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return expectOneRow(rows, "position", position.ID)
}

// Delete removes a position. Employees holding it block the delete unless
// force is set, in which case they are detached in the same transaction.
func (r *PositionRepository) Delete(ctx context.Context, id int64, force bool) error {
	return r.db.WithTx(ctx, func(q Queryer) error {
		return deleteReferenced(ctx, q, "position", "positions", id, force, positionReferences)
	})
}
