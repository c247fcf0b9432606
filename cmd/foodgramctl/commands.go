package main

import (
	"fmt"
	"os"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/services"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	adminEmail     string
	adminUsername  string
	adminPassword  string
	adminFirstName string
	adminLastName  string

	rootCmd = &cobra.Command{
		Use:           "foodgramctl",
		Short:         "Maintenance commands for the Foodgram backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	}

	loadIngredientsCmd = &cobra.Command{
		Use:   "load-ingredients [file.json]",
		Short: "Import ingredients from a JSON array of {name, measurement_unit}",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoadIngredients,
	}

	loadTagsCmd = &cobra.Command{
		Use:   "load-tags [file.json]",
		Short: "Import tags from a JSON array of {name, color, slug}",
		Args:  cobra.ExactArgs(1),
		RunE:  runLoadTags,
	}

	createAdminCmd = &cobra.Command{
		Use:   "create-admin",
		Short: "Register a user (or reuse an existing one) and grant the admin role",
		RunE:  runCreateAdmin,
	}
)

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email (required)")
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "admin username")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password, used only when the user does not exist")
	createAdminCmd.Flags().StringVar(&adminFirstName, "first-name", "Admin", "first name")
	createAdminCmd.Flags().StringVar(&adminLastName, "last-name", "Foodgram", "last name")
	_ = createAdminCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(migrateCmd, loadIngredientsCmd, loadTagsCmd, createAdminCmd)
}

func connect() (*gorm.DB, *config.Config, error) {
	cfg := config.Load()
	if err := database.Connect(cfg); err != nil {
		return nil, nil, err
	}
	return database.DB, cfg, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, _, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
	return nil
}

func runLoadIngredients(cmd *cobra.Command, args []string) error {
	var items []dto.IngredientRequest
	if err := readJSON(args[0], &items); err != nil {
		return err
	}

	db, _, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	n, err := services.NewCatalogService(db).ImportIngredients(cmd.Context(), items)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d ingredients\n", n, len(items))
	return nil
}

func runLoadTags(cmd *cobra.Command, args []string) error {
	var items []dto.TagRequest
	if err := readJSON(args[0], &items); err != nil {
		return err
	}

	db, _, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	n, err := services.NewCatalogService(db).ImportTags(cmd.Context(), items)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d tags\n", n, len(items))
	return nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	db, cfg, err := connect()
	if err != nil {
		return err
	}
	defer database.Close(db)

	ctx := cmd.Context()

	users := services.NewUserService(db, services.NewFollowService(db))
	exists, err := users.EmailExists(ctx, adminEmail)
	if err != nil {
		return err
	}
	if !exists {
		if adminPassword == "" {
			return fmt.Errorf("--password is required to create %s", adminEmail)
		}
		_, err := services.NewAuthService(db, cfg).Register(ctx, &dto.RegisterRequest{
			Email:     adminEmail,
			Username:  adminUsername,
			FirstName: adminFirstName,
			LastName:  adminLastName,
			Password:  adminPassword,
		})
		if err != nil {
			return err
		}
	}

	if err := users.PromoteToAdmin(ctx, adminEmail); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", adminEmail)
	return nil
}

func readJSON(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
