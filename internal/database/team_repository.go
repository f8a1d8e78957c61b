package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rfidaccess/access-control-backend/internal/models"
)

var teamReferences = []reference{
	{table: "employees", column: "team_id", blocking: true},
	{table: "events", column: "team_id"},
}

// TeamRepository handles database operations for teams
type TeamRepository struct {
	db DB
}

// NewTeamRepository creates a new TeamRepository
func NewTeamRepository(db DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create inserts a team and sets its ID. The insert runs in a transaction so a
// lost connection is never answered by sending it again.
func (r *TeamRepository) Create(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (name, description, leader_name)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.WithTx(ctx, func(q Queryer) error {
		return q.GetContext(ctx, &team.ID, query, team.Name, team.Description, team.LeaderName)
	})
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetByID retrieves a team by ID, or nil when absent
func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	var team models.Team
	err := r.db.GetContext(ctx, &team, `SELECT id, name, description, leader_name FROM teams WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &team, nil
}

// List retrieves every team ordered by name
func (r *TeamRepository) List(ctx context.Context) ([]models.Team, error) {
	teams := []models.Team{}
	err := r.db.SelectContext(ctx, &teams, `SELECT id, name, description, leader_name FROM teams ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

// Update writes every column of team
func (r *TeamRepository) Update(ctx context.Context, team *models.Team) error {
	query := `
		UPDATE teams
		SET name = $2, description = $3, leader_name = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, team.ID, team.Name, team.Description, team.LeaderName)
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return expectOneRow(rows, "team", team.ID)
}

// Delete removes a team. Assigned employees block the delete unless force is
// set, in which case they are detached in the same transaction.
func (r *TeamRepository) Delete(ctx context.Context, id int64, force bool) error {
	return r.db.WithTx(ctx, func(q Queryer) error {
		return deleteReferenced(ctx, q, "team", "teams", id, force, teamReferences)
	})
}
