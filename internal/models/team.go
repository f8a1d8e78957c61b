package models

import (
	"errors"
	"strings"
)

// Team is a group of employees
type Team struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	LeaderName  string `json:"leader_name" db:"leader_name"`
}

// CreateTeamRequest represents the request to create a team
type CreateTeamRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	LeaderName  string `json:"leader_name"`
}

// Validate validates the CreateTeamRequest
func (req *CreateTeamRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}
	if len(req.Name) > 100 {
		return errors.New("name must be at most 100 characters")
	}
	return nil
}

// UpdateTeamRequest carries optional fields; blank values keep the current one
type UpdateTeamRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	LeaderName  *string `json:"leader_name,omitempty"`
}

// Apply merges the supplied fields into team.
func (req *UpdateTeamRequest) Apply(team *Team) {
	if !Blank(req.Name) {
		team.Name = *req.Name
	}
	if !Blank(req.Description) {
		team.Description = *req.Description
	}
	if !Blank(req.LeaderName) {
		team.LeaderName = *req.LeaderName
	}
}
