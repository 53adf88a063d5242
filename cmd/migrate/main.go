package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kdimtricp/cvat-api/internal/config"
	"github.com/kdimtricp/cvat-api/internal/database"
	"github.com/kdimtricp/cvat-api/internal/logging"
	"github.com/kdimtricp/cvat-api/migrations"
)

func main() {
	status := flag.Bool("status", false, "Show migration status only")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})

	db, err := database.NewDB(database.ConfigFrom(cfg.Database))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if !*status {
		fmt.Printf("Running %s migrations...\n", db.Type())
		if err := db.RunMigrations(); err != nil {
			logging.Error().Err(err).Msg("Failed to run migrations")
			db.Close()
			os.Exit(1)
		}
		fmt.Println("Migrations completed successfully!")
		return
	}

	migrator := database.NewMigrator(db.Conn(), db.Type())
	if err := migrator.Initialize(); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize migrator")
	}

	applied, err := migrator.GetAppliedMigrations()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to get applied migrations")
	}

	all, err := migrator.LoadMigrations(migrations.FS)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load migrations")
	}

	fmt.Println("Migration Status:")
	fmt.Println("=================")
	for _, m := range all {
		state := "pending"
		if applied[m.Version] {
			state = "applied"
		}
		fmt.Printf("%s - %s [%s]\n", m.Version, m.Name, state)
	}
}
