// Command import loads a camera dataset into the database.
//
//	import -in cameras.ndjson.zst [-db ./data/cameras.db] [-export clean.ndjson.zst]
package main

import (
	"flag"
	"os"

	"github.com/jengzang/camglobe/internal/config"
	"github.com/jengzang/camglobe/internal/database"
	"github.com/jengzang/camglobe/internal/dataset"
	"github.com/jengzang/camglobe/internal/logger"
	"github.com/jengzang/camglobe/internal/repository"
)

func main() {
	cfg := config.Load()

	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	in := flag.String("in", "", "dataset to import (JSON array or NDJSON, optionally .zst)")
	export := flag.String("export", "", "also write the normalized dataset here")
	level := flag.String("log-level", cfg.LogLevel, "log level")
	flag.Parse()

	log := logger.New(logger.Config{Level: *level, Format: cfg.LogFormat, Service: "camglobe-import"})

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	cameras, stats, err := dataset.Load(*in)
	if err != nil {
		log.Fatal().Err(err).Str("file", *in).Msg("failed to load dataset")
	}
	log.Info().
		Int("read", stats.Read).
		Int("invalid", stats.Invalid).
		Int("duplicates", stats.Duplicates).
		Int("derived_ids", stats.DerivedIDs).
		Int("kept", stats.Kept).
		Floats64("bounds", []float64{stats.Bounds.Min.Lon(), stats.Bounds.Min.Lat(), stats.Bounds.Max.Lon(), stats.Bounds.Max.Lat()}).
		Float64("center_lat", stats.Center.Lat).
		Float64("center_lon", stats.Center.Lon).
		Msg("dataset loaded")

	db, err := database.Open(database.Config{Path: *dbPath})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db, log); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	repo := repository.NewCameraRepository(db)
	n, err := repo.UpsertBatch(cameras)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to import cameras")
	}
	total, err := repo.Count()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to count cameras")
	}
	log.Info().Int("upserted", n).Int64("total", total).Msg("import finished")

	if *export != "" {
		if err := dataset.Save(*export, cameras); err != nil {
			log.Fatal().Err(err).Str("file", *export).Msg("failed to export dataset")
		}
		log.Info().Str("file", *export).Msg("normalized dataset written")
	}
}
