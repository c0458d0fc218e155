package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homestead/homestead/internal/middleware"
	"github.com/homestead/homestead/internal/service"
)

var (
	userName     string
	userPassword string
	userAccess   []string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account, also when registration is closed",
	Long: `Create an account with the given access groups.

Example:
  homectl user create --username anna --password '...' --access rezepte_users,cospend`,
	RunE: runUserCreate,
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	if err := middleware.ValidateUsername(userName); err != nil {
		return err
	}
	if err := middleware.ValidatePassword(userPassword); err != nil {
		return err
	}

	ctx := cmd.Context()
	repo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc := service.NewUserService(repo, nil, nil, false, logger)
	user, err := svc.CreateUser(ctx, userName, userPassword, userAccess)
	if err != nil {
		return err
	}

	logger.Info("user_created", "username", user.Username)
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Username, strings.Join(user.Access, ", "))
	return nil
}

func init() {
	userCreateCmd.Flags().StringVar(&userName, "username", "", "login name")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	userCreateCmd.Flags().StringSliceVar(&userAccess, "access", nil, "comma-separated access groups")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}
