package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/components/units"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/options"
	"github.com/goliatone/go-formwizard/pkg/orchestrator"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/renderers/tui"
	"github.com/goliatone/go-formwizard/pkg/renderers/vanilla"
	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/pkg/submit"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const eventsPattern = "/sessions/{session}/events"

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the forms over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if cmd.Flags().Changed("addr") {
				a.cfg.Serve.Addr = addr
			}

			handler, err := a.newServer()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              a.cfg.Serve.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", srv.Addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				a.logger.Info("shutting down")
				return srv.Shutdown(shutdown)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to serve.addr from the config)")
	return cmd
}

// newServer wires the orchestrator, renderers, units route and submission
// sink into one handler.
func (a *app) newServer() (http.Handler, error) {
	registry := render.NewRegistry()
	html, err := vanilla.New(
		vanilla.WithAssetPrefix(a.cfg.Serve.AssetPrefix),
		vanilla.WithEventsURL(eventsPattern),
	)
	if err != nil {
		return nil, err
	}
	registry.MustRegister(html)
	text, err := tui.New(tui.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	registry.MustRegister(text)
	registry.MustRegister(render.JSONRenderer{})

	catalog, err := a.unitsCatalog()
	if err != nil {
		return nil, err
	}

	opts, err := a.orchestratorOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		orchestrator.WithRegistry(registry),
		orchestrator.WithSessionOptions(a.serveSessionOptions(catalog)...),
	)
	if manifest := a.cfg.Theme.Manifest(); manifest != nil {
		selector := staticSelector{manifest: manifest, variant: a.cfg.Theme.Variant}
		opts = append(opts, orchestrator.WithThemeSelector(selector, manifest.Name, a.cfg.Theme.Variant))
	}

	srv := &server{
		orch:   orchestrator.New(opts...),
		logger: a.logger,
	}
	mux := http.NewServeMux()
	srv.routes(mux)
	if _, err := units.RegisterRoutes(mux, "",
		units.WithParentParam(a.cfg.Serve.UnitsParam),
		units.WithCatalog(catalog),
	); err != nil {
		return nil, err
	}
	prefix := a.cfg.Serve.AssetPrefix
	mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServerFS(vanilla.AssetsFS())))
	return mux, nil
}

func (a *app) serveSessionOptions(catalog *units.Catalog) []session.Option {
	var submitter wizard.Submitter = wizard.SubmitterFunc(func(_ context.Context, state model.FormState) (model.Ack, error) {
		a.logger.Info("submission received", "form", state.FormID, "fields", len(state.Values))
		return model.Ack{Status: http.StatusOK}, nil
	})
	if a.cfg.Serve.SubmitURL != "" {
		submitter = submit.New(a.cfg.Serve.SubmitURL, http.MethodPost, submit.WithLogger(a.logger))
	}
	opts := []session.Option{session.WithSubmitter(submitter)}

	if a.cfg.Serve.BaseURL != "" {
		return append(opts, session.WithBaseURL(a.cfg.Serve.BaseURL))
	}
	return append(opts, session.WithFetcher(func(model.Dependent) options.Fetcher { return catalog }))
}
