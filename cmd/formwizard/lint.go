package main

import (
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/orchestrator"
)

type violation struct {
	source  string
	form    string
	message string
}

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint [dir...]",
		Short: "Build every form schema and report the ones that fail",
		Long: `Lint loads each schema directory, builds every form it declares and
prints one line per broken form. Without arguments the configured schema
source is linted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			sources := map[string]fs.FS{}
			if len(args) == 0 {
				name := a.cfg.Schemas
				if name == "" {
					name = "embedded"
				}
				sources[name] = a.schemaFS()
			}
			for _, dir := range args {
				sources[dir] = os.DirFS(dir)
			}

			violations := lintSources(cmd, a, sources)
			if len(violations) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d schema source(s) ok\n", len(sources))
				return nil
			}
			for _, v := range violations {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s -> %s\n", v.source, v.form, v.message)
			}
			return fmt.Errorf("lint: %d form(s) failed", len(violations))
		},
	}
}

func lintSources(cmd *cobra.Command, a *app, sources map[string]fs.FS) []violation {
	var violations []violation
	for name, fsys := range sources {
		o := orchestrator.New(orchestrator.WithSchemas(fsys), orchestrator.WithLogger(a.logger))
		for _, problem := range o.Lint(cmd.Context()) {
			form := problem.FormID
			if form == "" {
				form = "(load)"
			}
			violations = append(violations, violation{source: name, form: form, message: problem.Err.Error()})
		}
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].source == violations[j].source {
			if violations[i].form == violations[j].form {
				return violations[i].message < violations[j].message
			}
			return violations[i].form < violations[j].form
		}
		return violations[i].source < violations[j].source
	})
	return violations
}
