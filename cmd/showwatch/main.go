package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/peterbourgon/ff/v3/ffyaml"
	"golang.org/x/exp/slog"
)

const envVarPrefix = "SHOWWATCH"

var (
	rootfs       = flag.NewFlagSet("showwatch", flag.ExitOnError)
	logLevelFlag = rootfs.String("loglevel", "INFO", "log level (DEBUG|INFO|WARN|ERROR|OFF)")
	_            = rootfs.String("config", "", "yaml config file")
)

func main() {
	ctx := context.Background()

	// a .env file is optional, the environment always wins
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Println(err)
		os.Exit(1)
	}

	options := []ff.Option{
		ff.WithEnvVarPrefix(envVarPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithAllowMissingConfigFile(true),
	}

	showscmd := &ffcli.Command{
		Name:       "shows",
		ShortUsage: "showwatch <flags> shows <shows flags>",
		ShortHelp:  "check the afisha for new shows and changed dates",
		LongHelp: `The shows subcommand is scraping the theater's listing page once, notifying about new shows
and changed dates compared to the last persisted state and persisting the new state.`,
		FlagSet: showsfs,
		Exec:    newShowsFunc(),
		Options: options,
	}

	seatscmd := &ffcli.Command{
		Name:       "seats",
		ShortUsage: "showwatch <flags> seats <seats flags>",
		ShortHelp:  "check the ticket vendor for available seats",
		LongHelp: `The seats subcommand is scraping the ticket pages of all known shows once, notifying about
seats becoming available and persisting the seat counts. With -weekend only the upcoming weekend is checked.`,
		FlagSet: seatsfs,
		Exec:    newSeatsFunc(),
		Options: options,
	}

	rootcmd := ffcli.Command{
		Name:        "showwatch",
		ShortUsage:  "showwatch <flags> cmd <cmd_flags>",
		ShortHelp:   "showwatch is watching a puppet theater for new shows and free seats",
		FlagSet:     rootfs,
		Subcommands: []*ffcli.Command{showscmd, seatscmd},
		Options:     options,
	}

	if err := rootcmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	os.Exit(0)
}

func createLogger(levelStr string) (*slog.Logger, error) {
	var lvl slog.Level

	switch levelStr {
	case slog.LevelDebug.String():
		lvl = slog.LevelDebug
	case slog.LevelInfo.String():
		lvl = slog.LevelInfo
	case slog.LevelWarn.String():
		lvl = slog.LevelWarn
	case slog.LevelError.String():
		lvl = slog.LevelError
	case "OFF":
		lvl = slog.Level(99)
	default:
		return nil, fmt.Errorf("log level %s not supported", levelStr)
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})), nil
}
