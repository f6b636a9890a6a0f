package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/awap/internal/services"
	"github.com/soaringjerry/awap/internal/utils"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a .csv, .xlsx or .xls respondent file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmdContext(cmd)
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read import file: %w", err)
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		respCache, closeCache := openCache(ctx, cfg)
		defer closeCache()

		imports := services.NewImportService(store, services.NewAuditService(store), nil, services.ImportOptions{
			MaxBytes:   cfg.MaxUploadBytes(),
			BatchSize:  cfg.Imports.BatchSize,
			OnComplete: respCache.Invalidate,
		})
		rec, err := imports.ImportFile(ctx, 0, filepath.Base(args[0]), data)
		if rec != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "import %s: %s, %d rows, %d inserted, %d skipped, %d failed\n",
				rec.ID, rec.Status, rec.TotalRows, rec.InsertedRows, rec.SkippedRows, rec.FailedRows)
		}
		if err != nil {
			utils.Error("import failed", utils.String("file", args[0]), utils.ErrorField(err))
			return err
		}
		return nil
	},
}
