// Command apronsim-journal inspects and exports journals stored in a
// postgres or sqlite database.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/apronsim/apronsim/internal/config"
	"github.com/apronsim/apronsim/internal/database"
)

const usage = `usage: apronsim-journal [-config dir] [-sqlite file] <command> [args]

commands:
  sessions            list recorded sessions
  export <id>...      write each session as a journal JSON file
  prune <days>        delete sessions older than the given number of days
`

func main() {
	configDir := flag.String("config", ".", "directory containing "+config.FileName)
	sqlitePath := flag.String("sqlite", "", "read a sqlite journal file instead of postgres")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := config.Load(*configDir); err != nil {
		logger.Warn("Failed to load config, using defaults", "error", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	db, err := open(*sqlitePath)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Setup(db, logger); err != nil {
		logger.Error("Failed to set up database", "error", err)
		os.Exit(1)
	}

	if err := runCommand(db, logger, args); err != nil {
		logger.Error("Command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func open(sqlitePath string) (*gorm.DB, error) {
	if sqlitePath != "" {
		return database.GetSqliteDB(sqlitePath)
	}
	return database.GetPostgresDB(config.GetDBConfig())
}

func runCommand(db *gorm.DB, logger *slog.Logger, args []string) error {
	switch strings.ToLower(args[0]) {
	case "sessions":
		return listSessions(db, os.Stdout)

	case "export":
		ids, err := parseIDs(args[1:])
		if err != nil {
			return err
		}
		cfg := config.GetStorageConfig().Memory
		for _, id := range ids {
			path, err := exportSession(db, cfg, id)
			if err != nil {
				return err
			}
			logger.Info("Journal exported", "session", id, "path", path)
		}
		return nil

	case "prune":
		if len(args) != 2 {
			return fmt.Errorf("prune takes one argument, the age in days")
		}
		days, err := strconv.Atoi(args[1])
		if err != nil || days < 0 {
			return fmt.Errorf("invalid age %q", args[1])
		}
		n, err := pruneSessions(db, days)
		if err != nil {
			return err
		}
		logger.Info("Sessions pruned", "count", n, "olderThanDays", days)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func parseIDs(args []string) ([]uint, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no session IDs provided")
	}
	ids := make([]uint, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid session ID %q", a)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
