// Command casectl is the ops tool: it runs migrations and manages staff
// role flags without going through the HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/junceapp/caseflow/internal/migrate"
	"github.com/junceapp/caseflow/internal/repository/postgres"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: casectl -dsn <dsn> <command>

commands:
  migrate                 apply pending migrations
  roles -user <id> [-admin] [-audit]
                          set staff role flags for a user
`)
	os.Exit(2)
}

func main() {
	dsn := flag.String("dsn", os.Getenv("CASEFLOW_DSN"), "PostgreSQL DSN")
	flag.Parse()

	if *dsn == "" || flag.NArg() < 1 {
		usage()
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	switch flag.Arg(0) {
	case "migrate":
		if err := migrate.Up(ctx, *dsn); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		logger.Info("migrations applied")

	case "roles":
		fs := flag.NewFlagSet("roles", flag.ExitOnError)
		user := fs.String("user", "", "user id")
		admin := fs.Bool("admin", false, "grant admin")
		audit := fs.Bool("audit", false, "grant audit")
		_ = fs.Parse(flag.Args()[1:])
		if *user == "" {
			usage()
		}

		db, err := postgres.New(ctx, *dsn)
		if err != nil {
			logger.Fatal("postgres.New", zap.Error(err))
		}
		defer db.Close()

		if err := postgres.NewUserRepo(db).SetRoles(ctx, *user, *admin, *audit); err != nil {
			logger.Fatal("set roles", zap.String("user_id", *user), zap.Error(err))
		}
		logger.Info("roles updated",
			zap.String("user_id", *user),
			zap.Bool("admin", *admin),
			zap.Bool("audit", *audit),
		)

	default:
		usage()
	}
}
