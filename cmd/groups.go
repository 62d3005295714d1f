package cmd

import (
	"context"
	"fmt"

	"github.com/mcbarinov/accounts-monitor/core/config"
	"github.com/mcbarinov/accounts-monitor/core/database"
	"github.com/mcbarinov/accounts-monitor/core/locker"
	"github.com/mcbarinov/accounts-monitor/core/logger"
	"github.com/mcbarinov/accounts-monitor/core/storage"
	"github.com/mcbarinov/accounts-monitor/feature/coins"
	"github.com/mcbarinov/accounts-monitor/feature/groups"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newGroupsService wires the groups service for one-shot CLI commands. The
// storage client is only created when the command actually needs it.
func newGroupsService(withStorage bool) (*groups.Service, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var client storage.Client
	if withStorage {
		client, err = storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
		}
	}

	store := groups.NewStore(db)
	coinsSvc := coins.NewService(db, logg)
	svc := groups.NewService(store, coinsSvc, locker.New(), client, cfg.Storage.Bucket, logg)
	return svc, logg, nil
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage account groups from the command line",
}

var groupsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print all groups as a TOML document",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newGroupsService(false)
		if err != nil {
			return err
		}
		doc, err := svc.ExportTOML(context.Background())
		if err != nil {
			return err
		}
		fmt.Print(doc)
		return nil
	},
}

var groupsImportCmd = &cobra.Command{
	Use:   "import <archive.zip>",
	Short: "Import groups from a zip archive of per-network-type account lists",
	Long: `Imports groups from a zip archive whose top-level directories are network
type names, each containing one <group name>.txt file with one address per
line. The archive file is deleted after processing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := newGroupsService(false)
		if err != nil {
			return err
		}
		count, err := svc.ImportZip(context.Background(), args[0])
		if err != nil {
			return err
		}
		logg.Info("Import finished", zap.Int("groups", count))
		return nil
	},
}

var groupsBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload a TOML export of all groups to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := newGroupsService(true)
		if err != nil {
			return err
		}
		key, err := svc.BackupToStorage(context.Background())
		if err != nil {
			return err
		}
		logg.Info("Backup uploaded", zap.String("object", key))
		return nil
	},
}

var groupsReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run the balance and name reconciliation passes for every group",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := newGroupsService(false)
		if err != nil {
			return err
		}
		ctx := context.Background()

		all, err := svc.ListGroups(ctx)
		if err != nil {
			return err
		}
		for _, group := range all {
			balances, err := svc.ProcessAccountBalances(ctx, group.ID)
			if err != nil {
				return err
			}
			names, err := svc.ProcessAccountNames(ctx, group.ID)
			if err != nil {
				return err
			}
			logg.Info("Group reconciled",
				zap.String("group", group.Name),
				zap.Int("balances_inserted", balances.Inserted),
				zap.Int("balances_deleted", balances.Deleted),
				zap.Int("names_inserted", names.Inserted),
				zap.Int("names_deleted", names.Deleted),
			)
		}
		return nil
	},
}

func init() {
	groupsCmd.AddCommand(groupsExportCmd)
	groupsCmd.AddCommand(groupsImportCmd)
	groupsCmd.AddCommand(groupsBackupCmd)
	groupsCmd.AddCommand(groupsReconcileCmd)
	RootCmd.AddCommand(groupsCmd)
}
