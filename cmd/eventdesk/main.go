package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tablehouse/eventdesk/internal/app"
	"github.com/tablehouse/eventdesk/internal/config"
)

// Version is set at build time.
var Version = "dev"

func main() {
	var appCfg config.AppConfig

	rootCmd := &cobra.Command{
		Use:           "eventdesk",
		Short:         "Gift cards, reservations and event tickets for Table House",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&appCfg.ConfigPath, "config", "c", "", "config file path (default config.yaml or $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&appCfg.EnvFile, "env-file", "", "dotenv file to load before reading config")

	rootCmd.AddCommand(serveCmd(&appCfg))
	rootCmd.AddCommand(migrateCmd(&appCfg))
	rootCmd.AddCommand(adminCmd(&appCfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(appCfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.RunServer(ctx, *appCfg)
		},
	}
}

func migrateCmd(appCfg *config.AppConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Migrate(cmd.Context(), *appCfg)
		},
	}
}

func adminCmd(appCfg *config.AppConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var params app.CreateAdminParams
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, password, err := app.CreateAdmin(cmd.Context(), *appCfg, params)
			if err != nil {
				return err
			}
			log.WithField("admin", admin.Username).Info("admin created")
			if params.Password == "" {
				fmt.Printf("generated password for %s: %s\n", admin.Username, password)
			}
			return nil
		},
	}
	createCmd.Flags().StringVarP(&params.Username, "username", "u", "", "login name")
	createCmd.Flags().StringVarP(&params.Password, "password", "p", "", "password (generated when empty)")
	createCmd.Flags().BoolVar(&params.IsSuperAdmin, "super", false, "grant super admin rights")
	_ = createCmd.MarkFlagRequired("username")

	cmd.AddCommand(createCmd)
	return cmd
}
