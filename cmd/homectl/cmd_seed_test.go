package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homestead/homestead/internal/model"
)

func TestParseExercises(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "list",
			raw: `
- exercise_id: "0001"
  name: barbell squat
  difficulty: advanced
  instructions: [Squat.]
- exercise_id: "0002"
  name: plank
  is_active: false
  instructions: [Hold.]
`,
		},
		{
			name: "document",
			raw: `---
exercises:
  - exercise_id: "0001"
    name: barbell squat
    difficulty: advanced
    instructions: [Squat.]
  - exercise_id: "0002"
    name: plank
    is_active: false
    instructions: [Hold.]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseExercises([]byte(tt.raw))
			require.NoError(t, err)
			require.Len(t, got, 2)

			assert.Equal(t, "0001", got[0].ExerciseID)
			assert.Equal(t, model.DifficultyAdvanced, got[0].Difficulty)
			assert.True(t, got[0].IsActive)
			assert.Equal(t, []string{"Squat."}, got[0].Instructions)

			assert.Equal(t, "plank", got[1].Name)
			assert.False(t, got[1].IsActive)
		})
	}
}

func TestParseExercises_Empty(t *testing.T) {
	got, err := parseExercises([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseExercises([]byte("exercises: [unclosed"))
	assert.Error(t, err)
}
