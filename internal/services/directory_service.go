package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/models"
	"github.com/rfidaccess/access-control-backend/pkg/validator"
)

// TeamStore is the team persistence used by DirectoryService
type TeamStore interface {
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int64) (*models.Team, error)
	List(ctx context.Context) ([]models.Team, error)
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id int64, force bool) error
}

// PositionStore is the position persistence used by DirectoryService
type PositionStore interface {
	Create(ctx context.Context, position *models.Position) error
	GetByID(ctx context.Context, id int64) (*models.Position, error)
	List(ctx context.Context) ([]models.Position, error)
	Update(ctx context.Context, position *models.Position) error
	Delete(ctx context.Context, id int64, force bool) error
}

// EmployeeStore is the employee persistence used by DirectoryService
type EmployeeStore interface {
	Create(ctx context.Context, emp *models.Employee) error
	GetByRFID(ctx context.Context, rfid string) (*models.Employee, error)
	Exists(ctx context.Context, rfid string) (bool, error)
	GetDetail(ctx context.Context, rfid string) (*models.EmployeeDetail, error)
	List(ctx context.Context) ([]models.EmployeeDetail, error)
	Search(ctx context.Context, term string) ([]models.EmployeeDetail, error)
	Update(ctx context.Context, emp *models.Employee, relinkHireDay bool) error
	Delete(ctx context.Context, rfid string) error
}

// DirectoryService manages teams, positions and employees
type DirectoryService struct {
	teams     TeamStore
	positions PositionStore
	employees EmployeeStore
	validator *validator.CredentialValidator
	logger    *logrus.Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(teams TeamStore, positions PositionStore, employees EmployeeStore, logger *logrus.Logger) *DirectoryService {
	return &DirectoryService{
		teams:     teams,
		positions: positions,
		employees: employees,
		validator: validator.NewCredentialValidator(),
		logger:    logger,
	}
}

// ========== Teams ==========

// CreateTeam validates req and stores a new team
func (s *DirectoryService) CreateTeam(ctx context.Context, req *models.CreateTeamRequest) (*models.Team, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	team := &models.Team{Name: req.Name, Description: req.Description, LeaderName: req.LeaderName}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, err
	}
	s.logger.WithField("team_id", team.ID).Info("Team created")
	return team, nil
}

// GetTeam returns the team or apperr.ErrNotFound
func (s *DirectoryService) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, apperr.NotFound("team", id)
	}
	return team, nil
}

// ListTeams returns every team ordered by name
func (s *DirectoryService) ListTeams(ctx context.Context) ([]models.Team, error) {
	return s.teams.List(ctx)
}

// UpdateTeam applies the supplied fields to an existing team
func (s *DirectoryService) UpdateTeam(ctx context.Context, id int64, req *models.UpdateTeamRequest) (*models.Team, error) {
	team, err := s.GetTeam(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(team)
	if err := s.teams.Update(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// DeleteTeam refuses while employees belong to the team unless force is set,
// in which case they are unassigned first
func (s *DirectoryService) DeleteTeam(ctx context.Context, id int64, force bool) error {
	if err := s.teams.Delete(ctx, id, force); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"team_id": id, "force": force}).Info("Team deleted")
	return nil
}

// ========== Positions ==========

// CreatePosition validates req and stores a new position
func (s *DirectoryService) CreatePosition(ctx context.Context, req *models.CreatePositionRequest) (*models.Position, error) {
	if err := req.Validate(); err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	position := &models.Position{
		Title:           req.Title,
		CompetenceLevel: req.CompetenceLevel,
		Description:     req.Description,
		Requirements:    req.Requirements,
	}
	if err := s.positions.Create(ctx, position); err != nil {
		return nil, err
	}
	s.logger.WithField("position_id", position.ID).Info("Position created")
	return position, nil
}

// GetPosition returns the position or apperr.ErrNotFound
func (s *DirectoryService) GetPosition(ctx context.Context, id int64) (*models.Position, error) {
	position, err := s.positions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, apperr.NotFound("position", id)
	}
	return position, nil
}

// ListPositions returns every position
func (s *DirectoryService) ListPositions(ctx context.Context) ([]models.Position, error) {
	return s.positions.List(ctx)
}

// UpdatePosition applies the supplied fields to an existing position
func (s *DirectoryService) UpdatePosition(ctx context.Context, id int64, req *models.UpdatePositionRequest) (*models.Position, error) {
	position, err := s.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(position)
	if err := s.positions.Update(ctx, position); err != nil {
		return nil, err
	}
	return position, nil
}

// DeletePosition follows the same block-or-force policy as DeleteTeam
func (s *DirectoryService) DeletePosition(ctx context.Context, id int64, force bool) error {
	if err := s.positions.Delete(ctx, id, force); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"position_id": id, "force": force}).Info("Position deleted")
	return nil
}

// ========== Employees ==========

// AddEmployee registers a new credential holder. The existence pre-check
// gives a clean error; the unique key still decides under concurrency.
func (s *DirectoryService) AddEmployee(ctx context.Context, req *models.CreateEmployeeRequest) (*models.Employee, error) {
	rfid, err := s.validator.Validate(req.RFID)
	if err != nil {
		return nil, apperr.Invalid("rfid: %v", err)
	}
	req.RFID = rfid

	emp, err := req.ToEmployee()
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}

	exists, err := s.employees.Exists(ctx, rfid)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("rfid %s: %w", rfid, apperr.ErrDuplicateCredential)
	}

	if err := s.checkAssignments(ctx, emp.TeamID, emp.PositionID); err != nil {
		return nil, err
	}

	if err := s.employees.Create(ctx, emp); err != nil {
		return nil, err
	}
	s.logger.WithField("rfid", rfid).Info("Employee registered")
	return emp, nil
}

// GetEmployee returns the employee with team and position names, or
// apperr.ErrNotFound
func (s *DirectoryService) GetEmployee(ctx context.Context, rfid string) (*models.EmployeeDetail, error) {
	emp, err := s.employees.GetDetail(ctx, rfid)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, apperr.NotFound("employee", rfid)
	}
	return emp, nil
}

// ListEmployees returns every employee with team and position names
func (s *DirectoryService) ListEmployees(ctx context.Context) ([]models.EmployeeDetail, error) {
	return s.employees.List(ctx)
}

// SearchEmployees matches names and team case-insensitively and rfid by
// substring; a blank term lists everyone
func (s *DirectoryService) SearchEmployees(ctx context.Context, term string) ([]models.EmployeeDetail, error) {
	if models.Blank(&term) {
		return s.employees.List(ctx)
	}
	return s.employees.Search(ctx, term)
}

// UpdateEmployee merges only the supplied fields; the rfid itself is immutable
func (s *DirectoryService) UpdateEmployee(ctx context.Context, rfid string, req *models.UpdateEmployeeRequest) (*models.Employee, error) {
	emp, err := s.employees.GetByRFID(ctx, rfid)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, apperr.NotFound("employee", rfid)
	}

	hireDateChanged, err := req.Apply(emp)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}

	if err := s.checkAssignments(ctx, req.TeamID, req.PositionID); err != nil {
		return nil, err
	}

	if err := s.employees.Update(ctx, emp, hireDateChanged); err != nil {
		return nil, err
	}
	s.logger.WithField("rfid", rfid).Info("Employee updated")
	return emp, nil
}

// DeleteEmployee removes the employee. Events and alerts keep the rfid as
// historical text.
func (s *DirectoryService) DeleteEmployee(ctx context.Context, rfid string) error {
	if err := s.employees.Delete(ctx, rfid); err != nil {
		return err
	}
	s.logger.WithField("rfid", rfid).Info("Employee deleted")
	return nil
}

// checkAssignments verifies that the referenced team and position exist
func (s *DirectoryService) checkAssignments(ctx context.Context, teamID, positionID *int64) error {
	if teamID != nil {
		if _, err := s.GetTeam(ctx, *teamID); err != nil {
			return err
		}
	}
	if positionID != nil {
		if _, err := s.GetPosition(ctx, *positionID); err != nil {
			return err
		}
	}
	return nil
}
