package main

import (
	"context"
	"flag"

	"gitlab.com/henri.philipps/showwatch/service"
	"gitlab.com/henri.philipps/showwatch/storage"
)

var (
	showsfs        = flag.NewFlagSet("shows", flag.ExitOnError)
	showsCommon    = registerCommonFlags(showsfs)
	showPagesFlag  = showsfs.Bool("show-pages", false, "also scrape every show page for dates missing on the listing")
	showsStoreFlag = showsfs.String("shows-key", storage.ShowsKey, "storage key of the shows")
)

// newShowsFunc creates the func which is executed by showscmd.
func newShowsFunc() func(context.Context, []string) error {

	return func(ctx context.Context, args []string) error {
		logger, err := newRunLogger("shows")
		if err != nil {
			return err
		}

		cfg, err := showsCommon.config()
		if err != nil {
			return err
		}

		docs, closeStore, err := showsCommon.newDocumentStore(ctx, logger,
			map[string]string{*showsStoreFlag: *showsCommon.showsFile})
		if err != nil {
			return err
		}
		defer closeStore()

		publisher, closePublisher, err := showsCommon.newPublisher(logger, "shows")
		if err != nil {
			return err
		}
		defer closePublisher()

		store := storage.NewShowStorage(docs, storage.WithKey(*showsStoreFlag), storage.WithLogger(logger))

		tracker, err := service.NewShowTracker(cfg, showsCommon.newWatcher(cfg, logger), store, publisher, *showPagesFlag,
			service.WithLogger(logger),
			service.WithDryRun(*showsCommon.dryRun),
		)
		if err != nil {
			return err
		}

		return runOnce(ctx, logger, func(ctx context.Context) error {
			report, err := tracker.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("shows run finished", "messages", len(report.Messages), "persisted", report.Persisted)
			return nil
		})
	}
}
