package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/rfidaccess/access-control-backend/internal/models"
	"github.com/rfidaccess/access-control-backend/internal/services"
)

// DirectoryHandler handles teams, positions and employees
type DirectoryHandler struct {
	directory *services.DirectoryService
	activity  *services.ActivityService
	logger    *logrus.Logger
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(directory *services.DirectoryService, activity *services.ActivityService, logger *logrus.Logger) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, activity: activity, logger: logger}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

// ===================================================================
// TEAMS
// ===================================================================

// CreateTeam handles POST /api/v1/teams
func (h *DirectoryHandler) CreateTeam(c *gin.Context) {
	var req models.CreateTeamRequest
	if !bindJSON(c, &req) {
		return
	}
	team, err := h.directory.CreateTeam(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, "create_team", err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

// ListTeams handles GET /api/v1/teams
func (h *DirectoryHandler) ListTeams(c *gin.Context) {
	teams, err := h.directory.ListTeams(c.Request.Context())
	respondList(c, h.logger, "list_teams", teams, err)
}

// GetTeam handles GET /api/v1/teams/:id
func (h *DirectoryHandler) GetTeam(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	team, err := h.directory.GetTeam(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get_team", err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// UpdateTeam handles PUT /api/v1/teams/:id
func (h *DirectoryHandler) UpdateTeam(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.UpdateTeamRequest
	if !bindJSON(c, &req) {
		return
	}
	team, err := h.directory.UpdateTeam(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, "update_team", err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// DeleteTeam handles DELETE /api/v1/teams/:id?force=
func (h *DirectoryHandler) DeleteTeam(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.directory.DeleteTeam(c.Request.Context(), id, forceParam(c)); err != nil {
		respondError(c, h.logger, "delete_team", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team deleted"})
}

// ===================================================================
// POSITIONS
// ===================================================================

// CreatePosition handles POST /api/v1/positions
func (h *DirectoryHandler) CreatePosition(c *gin.Context) {
	var req models.CreatePositionRequest
	if !bindJSON(c, &req) {
		return
	}
	position, err := h.directory.CreatePosition(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, "create_position", err)
		return
	}
	c.JSON(http.StatusCreated, position)
}

// ListPositions handles GET /api/v1/positions
func (h *DirectoryHandler) ListPositions(c *gin.Context) {
	positions, err := h.directory.ListPositions(c.Request.Context())
	respondList(c, h.logger, "list_positions", positions, err)
}

// GetPosition handles GET /api/v1/positions/:id
func (h *DirectoryHandler) GetPosition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	position, err := h.directory.GetPosition(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get_position", err)
		return
	}
	c.JSON(http.StatusOK, position)
}

// UpdatePosition handles PUT /api/v1/positions/:id
func (h *DirectoryHandler) UpdatePosition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.UpdatePositionRequest
	if !bindJSON(c, &req) {
		return
	}
	position, err := h.directory.UpdatePosition(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, "update_position", err)
		return
	}
	c.JSON(http.StatusOK, position)
}

// DeletePosition handles DELETE /api/v1/positions/:id?force=
func (h *DirectoryHandler) DeletePosition(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.directory.DeletePosition(c.Request.Context(), id, forceParam(c)); err != nil {
		respondError(c, h.logger, "delete_position", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Position deleted"})
}

// ===================================================================
// EMPLOYEES
// ===================================================================

// CreateEmployee handles POST /api/v1/employees
func (h *DirectoryHandler) CreateEmployee(c *gin.Context) {
	var req models.CreateEmployeeRequest
	if !bindJSON(c, &req) {
		return
	}
	emp, err := h.directory.AddEmployee(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, "add_employee", err)
		return
	}
	c.JSON(http.StatusCreated, emp)
}

// ListEmployees handles GET /api/v1/employees?q=
func (h *DirectoryHandler) ListEmployees(c *gin.Context) {
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		employees, err := h.directory.SearchEmployees(c.Request.Context(), term)
		respondList(c, h.logger, "search_employees", employees, err)
		return
	}
	employees, err := h.directory.ListEmployees(c.Request.Context())
	respondList(c, h.logger, "list_employees", employees, err)
}

// GetEmployee handles GET /api/v1/employees/:rfid
func (h *DirectoryHandler) GetEmployee(c *gin.Context) {
	emp, err := h.directory.GetEmployee(c.Request.Context(), c.Param("rfid"))
	if err != nil {
		respondError(c, h.logger, "get_employee", err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

// UpdateEmployee handles PUT /api/v1/employees/:rfid
func (h *DirectoryHandler) UpdateEmployee(c *gin.Context) {
	var req models.UpdateEmployeeRequest
	if !bindJSON(c, &req) {
		return
	}
	emp, err := h.directory.UpdateEmployee(c.Request.Context(), c.Param("rfid"), &req)
	if err != nil {
		respondError(c, h.logger, "update_employee", err)
		return
	}
	c.JSON(http.StatusOK, emp)
}

// DeleteEmployee handles DELETE /api/v1/employees/:rfid
func (h *DirectoryHandler) DeleteEmployee(c *gin.Context) {
	if err := h.directory.DeleteEmployee(c.Request.Context(), c.Param("rfid")); err != nil {
		respondError(c, h.logger, "delete_employee", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Employee deleted"})
}

// EmployeeEvents handles GET /api/v1/employees/:rfid/events
func (h *DirectoryHandler) EmployeeEvents(c *gin.Context) {
	events, err := h.activity.ListEmployeeEvents(c.Request.Context(), c.Param("rfid"), limitParam(c, 50, 500))
	respondList(c, h.logger, "employee_events", events, err)
}
