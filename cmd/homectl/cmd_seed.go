package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/service"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load reference data",
}

var seedExercisesCmd = &cobra.Command{
	Use:   "exercises",
	Short: "Upsert the exercise catalog from a YAML file",
	Long: `Upsert exercises by exercise_id. The file is either a list of
exercises or a document with an "exercises" key:

  exercises:
    - exercise_id: "0001"
      name: barbell squat
      body_part: upper legs
      equipment: barbell
      target: quads
      instructions:
        - Stand with the bar on your upper back.`,
	RunE: runSeedExercises,
}

// seedExercise reads is_active as a pointer so that omitting it means active.
type seedExercise struct {
	model.Exercise `yaml:",inline"`
	Active         *bool `yaml:"is_active"`
}

// exerciseDoc is the keyed form of a seed file.
type exerciseDoc struct {
	Exercises []seedExercise `yaml:"exercises"`
}

// parseExercises accepts a bare YAML list or an exerciseDoc.
func parseExercises(raw []byte) ([]*model.Exercise, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("failed to parse exercise file: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	var list []seedExercise
	if top := root.Content[0]; top.Kind == yaml.SequenceNode {
		if err := top.Decode(&list); err != nil {
			return nil, fmt.Errorf("failed to parse exercise list: %w", err)
		}
	} else {
		var doc exerciseDoc
		if err := top.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse exercise file: %w", err)
		}
		list = doc.Exercises
	}

	out := make([]*model.Exercise, len(list))
	for i := range list {
		e := list[i].Exercise
		e.IsActive = list[i].Active == nil || *list[i].Active
		out[i] = &e
	}
	return out, nil
}

func runSeedExercises(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(seedFile)
	if err != nil {
		return err
	}
	exercises, err := parseExercises(raw)
	if err != nil {
		return err
	}
	if len(exercises) == 0 {
		return fmt.Errorf("%s contains no exercises", seedFile)
	}

	ctx := cmd.Context()
	repo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	res, err := service.NewFitnessService(repo).ImportExercises(ctx, exercises)
	if err != nil {
		return err
	}

	logger.Info("exercises_seeded", "created", res.Created, "updated", res.Updated)
	fmt.Fprintf(cmd.OutOrStdout(), "%d created, %d updated\n", res.Created, res.Updated)
	return nil
}

func init() {
	seedExercisesCmd.Flags().StringVar(&seedFile, "file", "", "YAML file with exercises")
	_ = seedExercisesCmd.MarkFlagRequired("file")

	seedCmd.AddCommand(seedExercisesCmd)
	rootCmd.AddCommand(seedCmd)
}
