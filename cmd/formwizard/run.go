package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/components/units"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/options"
	"github.com/goliatone/go-formwizard/pkg/orchestrator"
	"github.com/goliatone/go-formwizard/pkg/renderers/tui"
	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/pkg/submit"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func newRunCmd() *cobra.Command {
	var (
		formID   string
		endpoint string
		unitsURL string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fill in a form interactively in the terminal",
		Long: `Run walks a form step by step with terminal prompts. Completed forms
are posted to --endpoint, or printed as JSON when no endpoint is set.
Dependent selects read the built-in units catalog unless --units-url
points at a running server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			if cmd.Flags().Changed("form") {
				a.cfg.Run.Form = formID
			}
			if cmd.Flags().Changed("endpoint") {
				a.cfg.Run.Endpoint = endpoint
			}

			opts, err := a.orchestratorOptions()
			if err != nil {
				return err
			}
			o := orchestrator.New(opts...)
			form, err := o.Form(cmd.Context(), a.cfg.Run.Form)
			if err != nil {
				return err
			}

			sessionOpts, err := a.runSessionOptions(cmd, form, unitsURL)
			if err != nil {
				return err
			}
			s, err := o.Open(cmd.Context(), form.ID, nil, sessionOpts...)
			if err != nil {
				return err
			}
			defer o.Close(s.ID())

			runner, err := tui.New(tui.WithLogger(a.logger))
			if err != nil {
				return err
			}
			state, err := runner.Run(cmd.Context(), s)
			if errors.Is(err, tui.ErrAborted) {
				fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
				return nil
			}
			if err != nil {
				return err
			}
			a.logger.Info("form completed", "form", form.ID, "submissions", state.Submissions, "status", state.LastAck.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&formID, "form", "", "form id to run (defaults to run.form from the config)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "URL receiving the completed form")
	cmd.Flags().StringVar(&unitsURL, "units-url", "", "base URL of a server exposing the units route")
	return cmd
}

func (a *app) runSessionOptions(cmd *cobra.Command, form *model.Form, unitsURL string) ([]session.Option, error) {
	var submitter wizard.Submitter = submit.Writer{Out: cmd.OutOrStdout()}
	if a.cfg.Run.Endpoint != "" {
		submitter = submit.New(a.cfg.Run.Endpoint, form.Method,
			submit.WithEncoding(a.cfg.Run.Encoding),
			submit.WithLogger(a.logger),
		)
	}
	opts := []session.Option{session.WithSubmitter(submitter)}

	if unitsURL != "" {
		return append(opts, session.WithBaseURL(unitsURL)), nil
	}
	catalog, err := a.unitsCatalog()
	if err != nil {
		return nil, err
	}
	return append(opts, session.WithFetcher(func(model.Dependent) options.Fetcher { return catalog })), nil
}

func (a *app) unitsCatalog() (*units.Catalog, error) {
	if a.cfg.Serve.UnitsCatalog == "" {
		return units.DefaultCatalog()
	}
	f, err := os.Open(a.cfg.Serve.UnitsCatalog)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return units.LoadCatalog(f)
}
