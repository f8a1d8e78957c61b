package models

import (
	"errors"
	"strings"
)

// Competence levels offered by the administration forms
const (
	CompetenceJunior       = "Junior"
	CompetenceIntermediate = "Intermediate"
	CompetenceSenior       = "Senior"
	CompetenceExpert       = "Expert"
)

// Position is a job title with its competence requirements
type Position struct {
	ID              int64  `json:"id" db:"id"`
	Title           string `json:"title" db:"title"`
	CompetenceLevel string `json:"competence_level" db:"competence_level"`
	Description     string `json:"description" db:"description"`
	Requirements    string `json:"requirements" db:"requirements"`
}

// CreatePositionRequest represents the request to create a position
type CreatePositionRequest struct {
	Title           string `json:"title" binding:"required"`
	CompetenceLevel string `json:"competence_level"`
	Description     string `json:"description"`
	Requirements    string `json:"requirements"`
}

// Validate validates the CreatePositionRequest
func (req *CreatePositionRequest) Validate() error {
	if strings.TrimSpace(req.Title) == "" {
		return errors.New("title is required")
	}
	if len(req.Title) > 100 {
		return errors.New("title must be at most 100 characters")
	}
	return nil
}

// UpdatePositionRequest carries optional fields; blank values keep the current one
type UpdatePositionRequest struct {
	Title           *string `json:"title,omitempty"`
	CompetenceLevel *string `json:"competence_level,omitempty"`
	Description     *string `json:"description,omitempty"`
	Requirements    *string `json:"requirements,omitempty"`
}

// Apply merges the supplied fields into position.
func (req *UpdatePositionRequest) Apply(position *Position) {
	if !Blank(req.Title) {
		position.Title = *req.Title
	}
	if !Blank(req.CompetenceLevel) {
		position.CompetenceLevel = *req.CompetenceLevel
	}
	if !Blank(req.Description) {
		position.Description = *req.Description
	}
	if !Blank(req.Requirements) {
		position.Requirements = *req.Requirements
	}
}
