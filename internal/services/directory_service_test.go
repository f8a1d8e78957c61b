package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfidaccess/access-control-backend/internal/apperr"
	"github.com/rfidaccess/access-control-backend/internal/models"
)

// ========== in-memory stores ==========

type memTeams struct {
	rows   map[int64]*models.Team
	nextID int64
}

func newMemTeams() *memTeams { return &memTeams{rows: map[int64]*models.Team{}} }

func (m *memTeams) Create(_ context.Context, team *models.Team) error {
	m.nextID++
	team.ID = m.nextID
	copied := *team
	m.rows[team.ID] = &copied
	return nil
}

func (m *memTeams) GetByID(_ context.Context, id int64) (*models.Team, error) {
	team, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *team
	return &copied, nil
}

func (m *memTeams) List(_ context.Context) ([]models.Team, error) {
	teams := make([]models.Team, 0, len(m.rows))
	for _, t := range m.rows {
		teams = append(teams, *t)
	}
	return teams, nil
}

func (m *memTeams) Update(_ context.Context, team *models.Team) error {
	copied := *team
	m.rows[team.ID] = &copied
	return nil
}

func (m *memTeams) Delete(_ context.Context, id int64, _ bool) error {
	if _, ok := m.rows[id]; !ok {
		return apperr.NotFound("team", id)
	}
	delete(m.rows, id)
	return nil
}

type memPositions struct {
	rows map[int64]*models.Position
}

func (m *memPositions) Create(_ context.Context, position *models.Position) error {
	position.ID = int64(len(m.rows) + 1)
	copied := *position
	m.rows[position.ID] = &copied
	return nil
}

func (m *memPositions) GetByID(_ context.Context, id int64) (*models.Position, error) {
	position, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *position
	return &copied, nil
}

func (m *memPositions) List(_ context.Context) ([]models.Position, error) {
	positions := make([]models.Position, 0, len(m.rows))
	for _, p := range m.rows {
		positions = append(positions, *p)
	}
	return positions, nil
}

func (m *memPositions) Update(_ context.Context, position *models.Position) error {
	copied := *position
	m.rows[position.ID] = &copied
	return nil
}

func (m *memPositions) Delete(_ context.Context, id int64, _ bool) error {
	delete(m.rows, id)
	return nil
}

type memEmployees struct {
	rows        map[string]*models.Employee
	relinked    bool
	searchTerms []string
}

func newMemEmployees() *memEmployees { return &memEmployees{rows: map[string]*models.Employee{}} }

func (m *memEmployees) Create(_ context.Context, emp *models.Employee) error {
	if _, ok := m.rows[emp.RFID]; ok {
		return apperr.ErrDuplicateCredential
	}
	copied := *emp
	m.rows[emp.RFID] = &copied
	return nil
}

func (m *memEmployees) GetByRFID(_ context.Context, rfid string) (*models.Employee, error) {
	emp, ok := m.rows[rfid]
	if !ok {
		return nil, nil
	}
	copied := *emp
	return &copied, nil
}

func (m *memEmployees) Exists(_ context.Context, rfid string) (bool, error) {
	_, ok := m.rows[rfid]
	return ok, nil
}

func (m *memEmployees) GetDetail(_ context.Context, rfid string) (*models.EmployeeDetail, error) {
	emp, ok := m.rows[rfid]
	if !ok {
		return nil, nil
	}
	return &models.EmployeeDetail{Employee: *emp}, nil
}

func (m *memEmployees) List(_ context.Context) ([]models.EmployeeDetail, error) {
	list := make([]models.EmployeeDetail, 0, len(m.rows))
	for _, e := range m.rows {
		list = append(list, models.EmployeeDetail{Employee: *e})
	}
	return list, nil
}

func (m *memEmployees) Search(_ context.Context, term string) ([]models.EmployeeDetail, error) {
	m.searchTerms = append(m.searchTerms, term)
	list := make([]models.EmployeeDetail, 0)
	for _, e := range m.rows {
		if strings.Contains(strings.ToLower(e.LastName), strings.ToLower(strings.TrimSpace(term))) {
			list = append(list, models.EmployeeDetail{Employee: *e})
		}
	}
	return list, nil
}

func (m *memEmployees) Update(_ context.Context, emp *models.Employee, relinkHireDay bool) error {
	m.relinked = relinkHireDay
	copied := *emp
	m.rows[emp.RFID] = &copied
	return nil
}

func (m *memEmployees) Delete(_ context.Context, rfid string) error {
	if _, ok := m.rows[rfid]; !ok {
		return apperr.NotFound("employee", rfid)
	}
	delete(m.rows, rfid)
	return nil
}

func setupDirectoryService() (*DirectoryService, *memTeams, *memEmployees) {
	teams := newMemTeams()
	employees := newMemEmployees()
	positions := &memPositions{rows: map[int64]*models.Position{}}
	return NewDirectoryService(teams, positions, employees, testLogger()), teams, employees
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func TestDirectoryService_AddEmployee(t *testing.T) {
	ctx := context.Background()

	t.Run("registers with ACTIVE default and trimmed rfid", func(t *testing.T) {
		svc, teams, employees := setupDirectoryService()
		team, err := svc.CreateTeam(ctx, &models.CreateTeamRequest{Name: "Security"})
		require.NoError(t, err)
		require.Len(t, teams.rows, 1)

		emp, err := svc.AddEmployee(ctx, &models.CreateEmployeeRequest{
			RFID:      "  1234ABCD ",
			LastName:  "Haddad",
			FirstName: "Amira",
			HireDate:  "2021-03-01",
			TeamID:    &team.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, "1234ABCD", emp.RFID)
		assert.Equal(t, models.EmployeeStatusActive, emp.Status)
		assert.Contains(t, employees.rows, "1234ABCD")
	})

	t.Run("duplicate rfid", func(t *testing.T) {
		svc, _, _ := setupDirectoryService()
		req := &models.CreateEmployeeRequest{RFID: "1234ABCD", LastName: "Haddad", FirstName: "Amira"}
		_, err := svc.AddEmployee(ctx, req)
		require.NoError(t, err)

		_, err = svc.AddEmployee(ctx, &models.CreateEmployeeRequest{RFID: "1234ABCD", LastName: "Other", FirstName: "Person"})
		assert.True(t, errors.Is(err, apperr.ErrDuplicateCredential))
	})

	t.Run("unknown team", func(t *testing.T) {
		svc, _, employees := setupDirectoryService()
		_, err := svc.AddEmployee(ctx, &models.CreateEmployeeRequest{
			RFID: "1234ABCD", LastName: "Haddad", FirstName: "Amira", TeamID: int64Ptr(42),
		})
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
		assert.Empty(t, employees.rows)
	})

	t.Run("invalid rfid", func(t *testing.T) {
		svc, _, _ := setupDirectoryService()
		_, err := svc.AddEmployee(ctx, &models.CreateEmployeeRequest{RFID: "   ", LastName: "Haddad", FirstName: "Amira"})
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	})

	t.Run("invalid hire date", func(t *testing.T) {
		svc, _, _ := setupDirectoryService()
		_, err := svc.AddEmployee(ctx, &models.CreateEmployeeRequest{
			RFID: "1234ABCD", LastName: "Haddad", FirstName: "Amira", HireDate: "01/03/2021",
		})
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	})
}

func TestDirectoryService_UpdateEmployee(t *testing.T) {
	ctx := context.Background()

	t.Run("only supplied fields change", func(t *testing.T) {
		svc, _, employees := setupDirectoryService()
		_, err := svc.AddEmployee(ctx, &models.CreateEmployeeRequest{
			RFID: "1234ABCD", LastName: "Haddad", FirstName: "Amira", Phone: "0600000000", HireDate: "2021-03-01",
		})
		require.NoError(t, err)

		emp, err := svc.UpdateEmployee(ctx, "1234ABCD", &models.UpdateEmployeeRequest{
			Email:     strPtr("amira@example.com"),
			FirstName: strPtr("  "),
		})
		require.NoError(t, err)
		assert.Equal(t, "amira@example.com", emp.Email)
		assert.Equal(t, "Amira", emp.FirstName)
		assert.Equal(t, "0600000000", emp.Phone)
		assert.False(t, employees.relinked)
	})

	t.Run("hire date change relinks", func(t *testing.T) {
		svc, _, employees := setupDirectoryService()
		_, err := svc.AddEmployee(ctx, &models.CreateEmployeeRequest{
			RFID: "1234ABCD", LastName: "Haddad", FirstName: "Amira", HireDate: "2021-03-01",
		})
		require.NoError(t, err)

		_, err = svc.UpdateEmployee(ctx, "1234ABCD", &models.UpdateEmployeeRequest{HireDate: strPtr("2022-01-10")})
		require.NoError(t, err)
		assert.True(t, employees.relinked)
	})

	t.Run("missing employee", func(t *testing.T) {
		svc, _, _ := setupDirectoryService()
		_, err := svc.UpdateEmployee(ctx, "NOPE", &models.UpdateEmployeeRequest{Email: strPtr("a@b.c")})
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("invalid status", func(t *testing.T) {
		svc, _, _ := setupDirectoryService()
		_, err := svc.AddEmployee(ctx, &models.CreateEmployeeRequest{RFID: "1234ABCD", LastName: "Haddad", FirstName: "Amira"})
		require.NoError(t, err)

		_, err = svc.UpdateEmployee(ctx, "1234ABCD", &models.UpdateEmployeeRequest{Status: strPtr("RETIRED")})
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	})
}

func TestDirectoryService_SearchEmployees(t *testing.T) {
	ctx := context.Background()
	svc, _, employees := setupDirectoryService()
	for _, req := range []*models.CreateEmployeeRequest{
		{RFID: "A1", LastName: "Haddad", FirstName: "Amira"},
		{RFID: "B2", LastName: "Martin", FirstName: "Luc"},
	} {
		_, err := svc.AddEmployee(ctx, req)
		require.NoError(t, err)
	}

	t.Run("blank term lists everyone", func(t *testing.T) {
		list, err := svc.SearchEmployees(ctx, "   ")
		require.NoError(t, err)
		assert.Len(t, list, 2)
		assert.Empty(t, employees.searchTerms)
	})

	t.Run("term is passed to the store", func(t *testing.T) {
		list, err := svc.SearchEmployees(ctx, "hadd")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "A1", list[0].RFID)
		assert.Equal(t, []string{"hadd"}, employees.searchTerms)
	})
}

func TestDirectoryService_Teams(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupDirectoryService()

	_, err := svc.CreateTeam(ctx, &models.CreateTeamRequest{Name: "  "})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	team, err := svc.CreateTeam(ctx, &models.CreateTeamRequest{Name: "Night shift", LeaderName: "R. Dupont"})
	require.NoError(t, err)

	updated, err := svc.UpdateTeam(ctx, team.ID, &models.UpdateTeamRequest{Description: strPtr("22h-6h")})
	require.NoError(t, err)
	assert.Equal(t, "Night shift", updated.Name)
	assert.Equal(t, "22h-6h", updated.Description)
	assert.Equal(t, "R. Dupont", updated.LeaderName)

	_, err = svc.GetTeam(ctx, 999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	require.NoError(t, svc.DeleteTeam(ctx, team.ID, false))
	assert.True(t, errors.Is(svc.DeleteTeam(ctx, team.ID, false), apperr.ErrNotFound))
}
