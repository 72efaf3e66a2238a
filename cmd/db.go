package cmd

import (
	"github.com/sadoj/intel-backend/internal/auth"
	"github.com/sadoj/intel-backend/internal/db"
	"github.com/sadoj/intel-backend/internal/intelligence"
	"github.com/sadoj/intel-backend/internal/seeds"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "db commands",
}

func init() {
	dbCmd.AddCommand(migrateCmd())
	dbCmd.AddCommand(seedCmd())
}

func migrateCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gdb, err := db.Connect(cfg)
			if err != nil {
				return err
			}
			if err := migrate(gdb); err != nil {
				return err
			}
			logrus.Info("Migration complete")
			return nil
		},
	}

	return command
}

func seedCmd() *cobra.Command {
	var agent string
	command := &cobra.Command{
		Use:   "seed",
		Short: "Load the sample gangs, members, incidents and cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if agent == "" {
				agent = cfg.BootstrapAdminUsername
			}
			gdb, err := db.Connect(cfg)
			if err != nil {
				return err
			}
			if err := migrate(gdb); err != nil {
				return err
			}
			_, err = seeds.SeedAll(cmd.Context(), gdb, agent)
			return err
		},
	}
	command.Flags().StringVarP(&agent, "agent", "a", "", "username of the agent the sample reports are filed by (default: the bootstrap admin)")

	return command
}

// migrate runs every package migration. Agents come first: incidents and
// cases reference them.
func migrate(gdb *gorm.DB) error {
	if err := auth.Migrate(gdb); err != nil {
		return err
	}
	return intelligence.Migrate(gdb)
}
