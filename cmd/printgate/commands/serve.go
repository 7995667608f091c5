package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/printgate/printgate/internal/api"
	"github.com/printgate/printgate/internal/api/middleware"
	"github.com/printgate/printgate/internal/config"
	"github.com/printgate/printgate/internal/core"
	"github.com/printgate/printgate/internal/janitor"
	"github.com/printgate/printgate/internal/payment"
	"github.com/printgate/printgate/internal/pdf"
	"github.com/printgate/printgate/internal/storage"
	"github.com/printgate/printgate/internal/webhook"
)

func newServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the printgate HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	blobs, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer blobs.Close()

	var notifier core.Notifier = core.NopNotifier{}
	var sender *webhook.Sender
	if len(cfg.Webhooks) > 0 {
		sender = webhook.NewSender(cfg.Webhooks)
		sender.Start()
		defer sender.Stop()
		notifier = sender
	}

	store := core.NewStore()
	queue := core.NewQueue()
	liveness := core.NewTracker(cfg.Printer.StalenessThreshold, cfg.Printer.AvgJobTime)
	slicer := pdf.NewSlicer()
	gateway := payment.NewClient(cfg.Payment)

	admission := core.NewAdmission(store, queue, liveness, gateway, blobs, slicer, notifier)
	dispatcher := core.NewDispatcher(store, queue, blobs, notifier)

	jan := janitor.New(store, queue, blobs, cfg.Printer.LeaseTimeout, cfg.Queue.Retention)
	if err := jan.Start(); err != nil {
		return fmt.Errorf("start janitor: %w", err)
	}
	defer jan.Stop()

	var adminAuth *middleware.AdminAuth
	if cfg.Admin.PasswordHash != "" {
		adminAuth, err = middleware.NewAdminAuth(cfg.Admin.PasswordHash)
		if err != nil {
			return fmt.Errorf("init admin auth: %w", err)
		}
	}

	router := api.NewRouter(api.Deps{
		Store:        store,
		Queue:        queue,
		Liveness:     liveness,
		Admission:    admission,
		Dispatcher:   dispatcher,
		Blobs:        blobs,
		Slicer:       slicer,
		Notifier:     notifier,
		PaymentKeyID: cfg.Payment.KeyID,
		AgentToken:   cfg.Agent.Token,
		AdminAuth:    adminAuth,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("printgate listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
