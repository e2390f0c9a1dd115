package cmd

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirbyniko/statehouse/internal/config"
	"github.com/kirbyniko/statehouse/internal/store"
)

var maintainConfigPath string

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run the archival and retention sweeps",
	Long: `Maintain archives any events that are past the staleness threshold
and runs both retention sweeps: archive copies past their retention window
and soft-removed rows past their grace period are physically deleted.

Intended to be run from an external scheduler (cron or similar); failures
exit non-zero so the scheduler can retry.`,
	Run: runMaintain,
}

func init() {
	rootCmd.AddCommand(maintainCmd)

	maintainCmd.Flags().StringVarP(&maintainConfigPath, "config", "c", "config.yaml", "Path to the sources config file")
}

func runMaintain(cmd *cobra.Command, args []string) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	cfg, err := config.Load(maintainConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	db, err := store.NewDB(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	archiveStore := store.NewArchiveStore(db)
	now := time.Now().UTC()

	totalArchived := 0
	for _, sc := range cfg.Sources {
		n, err := archiveStore.ArchiveStale(ctx, sc.Name, cfg.CycleThreshold, now)
		if err != nil {
			log.Fatalf("Archive sweep failed for %s: %v", sc.Name, err)
		}
		totalArchived += n
	}

	archivedPurged, removedPurged, err := archiveStore.PurgeExpired(ctx,
		now.Add(-cfg.ArchiveRetention()),
		now.Add(-cfg.RemovedRetention()),
	)
	if err != nil {
		log.Fatalf("Retention sweep failed: %v", err)
	}

	log.Println("=== Maintenance Summary ===")
	log.Printf("Archived:          %d", totalArchived)
	log.Printf("Archive purged:    %d", archivedPurged)
	log.Printf("Soft-rows purged:  %d", removedPurged)
}
