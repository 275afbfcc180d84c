package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/config"
	"github.com/example/atelier/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the Atelier database and config",
		Long:  `Initialize the Atelier database at ~/.atelier/atelier.db and write a default .atelier/config.json into the current directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve working directory: %w", err)
			}
			cfg, err := config.Load(cwd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.DBPath != "" {
				db.SetPath(cfg.DBPath)
			}

			dbPath, err := db.GetDBPath()
			if err != nil {
				return fmt.Errorf("failed to get database path: %w", err)
			}

			fmt.Printf("Initializing Atelier database at %s\n", dbPath)

			if err := db.InitSchema(); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
			fmt.Println("✓ Database initialized")

			if err := initConfig(cwd); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}
			fmt.Println("✓ Config written to .atelier/config.json")
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  atelier topic create \"My first topic\" --project PROJ-000001 --user me")
			fmt.Println("  atelier run")

			return nil
		},
	}
}

// initConfig writes a default config file unless one already exists.
func initConfig(dir string) error {
	path := filepath.Join(dir, ".atelier", "config.json")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return config.Save(dir, config.Default())
}
