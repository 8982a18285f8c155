package cli

import (
	"fmt"
	"time"

	"qtro-isp/config"
	"qtro-isp/database"
	"qtro-isp/internal/usecase/adminauth"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage platform administrators",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account",
	RunE:  runAdminCreate,
}

func init() {
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().String("email", "", "Admin email (required)")
	adminCreateCmd.Flags().String("password", "", "Admin password, at least 8 characters (required)")
	adminCreateCmd.Flags().String("name", "", "Full name")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")
}

func runAdminCreate(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	name, _ := cmd.Flags().GetString("name")

	dsn, err := config.DatabaseURL()
	if err != nil {
		return err
	}
	db, err := database.Open(dsn, debugSQL)
	if err != nil {
		return err
	}

	svc := adminauth.NewService(db, 24*time.Hour, nil)
	admin, err := svc.CreateAdmin(cmd.Context(), email, password, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", admin.Email, admin.ID)
	return nil
}
