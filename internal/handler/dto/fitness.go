package dto

import (
	"time"

	"github.com/homestead/homestead/internal/model"
)

// TemplateRequest is the body of template create and update.
type TemplateRequest struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Exercises   []model.WorkoutExercise `json:"exercises"`
	IsPublic    bool                    `json:"is_public"`
}

// SessionRequest is the body of workout session create and update.
type SessionRequest struct {
	TemplateID string                    `json:"template_id"`
	Name       string                    `json:"name"`
	Exercises  []model.CompletedExercise `json:"exercises"`
	StartTime  *time.Time                `json:"start_time"`
	EndTime    *time.Time                `json:"end_time"`
	Notes      string                    `json:"notes"`
}

// TemplateListResponse lists workout templates.
type TemplateListResponse struct {
	Templates []*model.WorkoutTemplate `json:"templates"`
}

// TemplateResponse wraps a single template.
type TemplateResponse struct {
	Template *model.WorkoutTemplate `json:"template"`
}

// SessionListResponse is one page of workout sessions.
type SessionListResponse struct {
	Sessions []*model.WorkoutSession `json:"sessions"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
}

// WorkoutSessionResponse wraps a single workout session.
type WorkoutSessionResponse struct {
	Session *model.WorkoutSession `json:"session"`
}
