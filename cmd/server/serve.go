package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/hidden-role-client/internal/httpapi"
	"github.com/DoyleJ11/hidden-role-client/internal/hub"
	"github.com/DoyleJ11/hidden-role-client/internal/i18n"
	"github.com/DoyleJ11/hidden-role-client/internal/lobby"
	"github.com/DoyleJ11/hidden-role-client/internal/session"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and websocket presentation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), v)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().StringSlice("origins", nil, "websocket origin patterns to allow, e.g. localhost:*")
	bind(v, cmd.Flags().Lookup("addr"), "http.addr")
	bind(v, cmd.Flags().Lookup("origins"), "http.origins")
	return cmd
}

func serve(parent context.Context, v *viper.Viper) error {
	if parent == nil {
		parent = context.Background()
	}
	d, err := setup(v)
	if err != nil {
		return err
	}
	defer d.close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d.initEngine(ctx)

	text := i18n.New(d.cfg.UI.Lang)
	h := hub.NewHub(ctx, hub.Options{
		Template: lobby.Config{
			Backend:     d.backend,
			Crypto:      d.engine,
			Roles:       session.RandomRoles,
			Delays:      d.cfg.Notify.Delays(),
			Text:        text,
			Log:         d.log,
			FlowTimeout: d.cfg.Flow.Timeout,
		},
		Keyring: d.keys,
		Log:     d.log,
	})

	srv := &http.Server{
		Addr: d.cfg.HTTP.Addr,
		Handler: httpapi.SetupRoutes(h, httpapi.Options{
			Text:           text,
			Log:            d.log,
			Ready:          d.backend.Available,
			OriginPatterns: v.GetStringSlice("http.origins"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.log.Info("listening", zap.String("addr", srv.Addr), zap.String("lang", text.Lang()))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		d.log.Info("shutting down")
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
