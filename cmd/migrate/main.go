package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/db"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"github.com/angelmondragon/creatorhub-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

commands:
  up              apply pending migrations
  down            roll back the latest migration
  status          list migrations and when they were applied
  to <version>    migrate up or down to version (YYYYMMDDHHMMSS)
  create <name>   write a new empty migration into -dir
  validate        check file names and goose sections in -dir

flags:
`

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, args := flag.Arg(0), flag.Args()[1:]

	if err := run(command, args, *dir); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", command, err)
		os.Exit(1)
	}
}

func run(command string, args []string, dir string) error {
	// File commands never touch the database.
	switch command {
	case "create":
		if len(args) != 1 {
			return fmt.Errorf("expected exactly one migration name")
		}
		target := dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, args[0])
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "validate":
		if err := migrate.ValidateFS(source(dir)); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": command})

	if cfg.DB.IsSQLite() {
		return fmt.Errorf("goose migrations target postgres; sqlite schemas come from the models")
	}
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()
	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	migrator, err := migrate.NewMigrator(sqlDB, source(dir))
	if err != nil {
		return err
	}

	var applied []migrate.Applied
	switch command {
	case "up":
		applied, err = migrator.Up(ctx)
	case "down":
		applied, err = migrator.Down(ctx)
	case "to":
		if len(args) != 1 {
			return fmt.Errorf("expected a target version")
		}
		applied, err = migrator.MigrateTo(ctx, args[0])
	case "status":
		return printStatus(ctx, migrator)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	for _, a := range applied {
		fmt.Printf("%-4s %d %s\n", a.Direction, a.Version, a.Path)
	}
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "migrations finished")
	return nil
}

func source(dir string) fs.FS {
	if dir == "" {
		return migrate.Embedded()
	}
	return os.DirFS(dir)
}

func printStatus(ctx context.Context, migrator *migrate.Migrator) error {
	statuses, err := migrator.Status(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
	}
	return w.Flush()
}
