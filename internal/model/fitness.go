package model

import "time"

// Difficulty grades an exercise.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Difficulties lists the valid difficulty levels in ascending order.
var Difficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// IsValid checks the difficulty against the known set.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Exercise is an entry in the exercise catalog.
type Exercise struct {
	ID               string     `json:"id" yaml:"-"`
	ExerciseID       string     `json:"exercise_id" yaml:"exercise_id"`
	Name             string     `json:"name" yaml:"name"`
	GifURL           string     `json:"gif_url,omitempty" yaml:"gif_url"`
	BodyPart         string     `json:"body_part" yaml:"body_part"`
	Equipment        string     `json:"equipment" yaml:"equipment"`
	Target           string     `json:"target" yaml:"target"`
	SecondaryMuscles []string   `json:"secondary_muscles" yaml:"secondary_muscles"`
	Instructions     []string   `json:"instructions" yaml:"instructions"`
	Category         string     `json:"category,omitempty" yaml:"category"`
	Difficulty       Difficulty `json:"difficulty" yaml:"difficulty"`
	IsActive         bool       `json:"is_active" yaml:"-"`
	CreatedAt        time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt        time.Time  `json:"updated_at" yaml:"-"`
}

// ExerciseFilters lists the distinct values available for filtering.
type ExerciseFilters struct {
	BodyParts    []string     `json:"body_parts"`
	Equipment    []string     `json:"equipment"`
	Targets      []string     `json:"targets"`
	Difficulties []Difficulty `json:"difficulties"`
}

// Workout limits.
const (
	DefaultRestTime = 120
	MinRestTime     = 10
	MaxRestTime     = 600
	MaxReps         = 1000
	MaxWeight       = 1000
	MinRPE          = 1
	MaxRPE          = 10

	MaxTemplateNameLength        = 100
	MaxTemplateDescriptionLength = 500
)

// WorkoutSet is a planned set.
type WorkoutSet struct {
	Reps   int      `json:"reps"`
	Weight *float64 `json:"weight,omitempty"`
	RPE    *float64 `json:"rpe,omitempty"`
}

// WorkoutExercise is a planned exercise with its sets.
type WorkoutExercise struct {
	Name     string       `json:"name"`
	Sets     []WorkoutSet `json:"sets"`
	RestTime int          `json:"rest_time"`
}

// WorkoutTemplate is a reusable workout plan.
type WorkoutTemplate struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Exercises   []WorkoutExercise `json:"exercises"`
	CreatedBy   string            `json:"created_by"`
	IsPublic    bool              `json:"is_public"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// CompletedSet is a set as performed.
type CompletedSet struct {
	Reps      int      `json:"reps"`
	Weight    *float64 `json:"weight,omitempty"`
	RPE       *float64 `json:"rpe,omitempty"`
	Completed bool     `json:"completed"`
	Notes     string   `json:"notes,omitempty"`
}

// CompletedExercise is an exercise as performed.
type CompletedExercise struct {
	Name     string         `json:"name"`
	Sets     []CompletedSet `json:"sets"`
	RestTime int            `json:"rest_time,omitempty"`
	Notes    string         `json:"notes,omitempty"`
}

// WorkoutSession is a logged workout.
type WorkoutSession struct {
	ID           string              `json:"id"`
	TemplateID   string              `json:"template_id,omitempty"`
	TemplateName string              `json:"template_name,omitempty"`
	Name         string              `json:"name"`
	Exercises    []CompletedExercise `json:"exercises"`
	StartTime    time.Time           `json:"start_time"`
	EndTime      *time.Time          `json:"end_time,omitempty"`
	Duration     *int                `json:"duration,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	CreatedBy    string              `json:"created_by"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}
