package main

import (
	"context"
	"flag"

	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/service"
	"gitlab.com/henri.philipps/showwatch/storage"
	"gitlab.com/henri.philipps/showwatch/storage/remote"
)

var (
	seatsfs     = flag.NewFlagSet("seats", flag.ExitOnError)
	seatsCommon = registerCommonFlags(seatsfs)

	seatsFileFlag      = seatsfs.String("seats-file", "selenium_seats.json", "state file of the seat counts")
	seatsKeyFlag       = seatsfs.String("seats-key", storage.SeatsKey, "storage key of the seat counts")
	showsURLFlag       = seatsfs.String("shows-url", "", "read the shows from this url instead of the storage backend")
	ticketURLsFlag     = seatsfs.String("ticket-urls", "", "comma separated ticket urls, skips the discovery through the shows")
	ticketDomainFlag   = seatsfs.String("ticket-domain", showwatch.DefaultConfig().TicketDomain, "domain of the ticket vendor")
	ticketEndpointFlag = seatsfs.String("ticket-endpoint", showwatch.DefaultConfig().TicketEndpoint, "path suffix of a ticket page")
	ticketParamsFlag   = seatsfs.String("ticket-params", "base,data", "comma separated query parameters a ticket link requires")
	priceMarkerFlag    = seatsfs.String("price-marker", showwatch.DefaultConfig().PriceMarker, "text in the tooltip of a seat which can be bought")
	weekendFlag        = seatsfs.String("weekend", string(showwatch.WeekendOff), "restrict the run to the upcoming weekend (off|on|friday)")
)

// newSeatsFunc creates the func which is executed by seatscmd.
func newSeatsFunc() func(context.Context, []string) error {

	return func(ctx context.Context, args []string) error {
		logger, err := newRunLogger("seats")
		if err != nil {
			return err
		}

		cfg, err := seatsCommon.config()
		if err != nil {
			return err
		}
		cfg.TicketDomain = *ticketDomainFlag
		cfg.TicketEndpoint = *ticketEndpointFlag
		cfg.TicketParams = splitList(*ticketParamsFlag)
		cfg.PriceMarker = *priceMarkerFlag
		if cfg.Weekend, err = showwatch.ParseWeekendMode(*weekendFlag); err != nil {
			return err
		}

		docs, closeStore, err := seatsCommon.newDocumentStore(ctx, logger, map[string]string{
			storage.ShowsKey: *seatsCommon.showsFile,
			*seatsKeyFlag:    *seatsFileFlag,
		})
		if err != nil {
			return err
		}
		defer closeStore()

		publisher, closePublisher, err := seatsCommon.newPublisher(logger, "seats")
		if err != nil {
			return err
		}
		defer closePublisher()

		var shows service.SnapshotLoader[*showwatch.Show] = storage.NewShowStorage(docs, storage.WithLogger(logger))
		if *showsURLFlag != "" {
			shows = storage.NewShowStorage(
				remote.New("", remote.WithURL(storage.ShowsKey, *showsURLFlag), remote.WithLogger(logger)),
				storage.WithLogger(logger),
			)
		}

		store := storage.NewSeatStorage(docs, storage.WithKey(*seatsKeyFlag), storage.WithLogger(logger))

		tracker, err := service.NewSeatTracker(cfg, seatsCommon.newWatcher(cfg, logger), store, shows, publisher,
			splitList(*ticketURLsFlag),
			service.WithLogger(logger),
			service.WithDryRun(*seatsCommon.dryRun),
		)
		if err != nil {
			return err
		}

		return runOnce(ctx, logger, func(ctx context.Context) error {
			report, err := tracker.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("seats run finished", "messages", len(report.Messages), "persisted", report.Persisted)
			return nil
		})
	}
}
