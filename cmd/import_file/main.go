package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"forecast-ingest/edi/internal/api"
	"forecast-ingest/edi/internal/common"
	"forecast-ingest/edi/internal/config"
	"forecast-ingest/edi/internal/constants"
	"forecast-ingest/edi/internal/db"
	"forecast-ingest/edi/internal/jobs"
	"forecast-ingest/edi/internal/logging"
	"forecast-ingest/edi/internal/models/dtos"
)

// import_file runs one file through the same parsers as the daemon and
// prints the import result as JSON. The file is not moved.
func main() {
	var (
		path     = flag.String("file", "", "Path to the interchange or tabular file")
		partner  = flag.String("partner", "", "Partner code or id (optional for interchanges: the ISA sender id is used)")
		fileType = flag.String("type", "auto", "File type: auto, x12, tabular")
	)
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Init(cfg.App.Env); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Close()

	result, err := run(context.Background(), cfg, *path, *partner, *fileType)
	if result != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logging.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, path, partner, fileType string) (*dtos.ImportResult, error) {
	if fileType == "auto" {
		detected, err := jobs.ClassifyFile(path)
		if err != nil {
			return nil, err
		}
		fileType = detected
	}

	gormDB, err := db.InitPostgresORM(cfg.Database)
	if err != nil {
		return nil, err
	}

	deps := api.InitDependencies(gormDB, nil, common.NewCacheService(0, 0), nil)

	switch fileType {
	case constants.TransactionFileTypeX12:
		return deps.Services.ForecastEDI.ProcessFile(ctx, path, partner)
	case constants.TransactionFileTypeTabular:
		return deps.Services.Tabular.ImportFile(ctx, path, partner)
	default:
		return nil, fmt.Errorf("unknown file type %q", fileType)
	}
}
