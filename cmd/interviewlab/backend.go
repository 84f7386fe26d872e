package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Strob0t/interviewlab/internal/adapter/storage"
	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/port/objectstore"
)

type collectionCount struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
}

type backendReport struct {
	Backend     string            `json:"backend"`
	Collections []collectionCount `json:"collections"`
}

func newBackendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Show the selected store backend and the records it holds",
		Long: `Prints which backend the configuration selects (kv when storage.kv.url is
set, else blob when storage.blob.token is set, else the local directory)
and counts the readable records of every collection.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withEnv(cmd.Context(), func(e *env) error {
				report, err := inspectBackend(cmd.Context(), e)
				if err != nil {
					return err
				}
				return emit(cmd.OutOrStdout(), opts.format, report, "COLLECTION\tRECORDS", func() [][]any {
					rows := [][]any{{"backend: " + report.Backend, ""}}
					for _, c := range report.Collections {
						rows = append(rows, []any{c.Collection, c.Records})
					}
					return rows
				})
			})
		},
	}
}

func inspectBackend(ctx context.Context, e *env) (*backendReport, error) {
	type collection struct {
		kind  objectstore.Kind
		scope string
	}
	collections := []collection{{kind: objectstore.KindRun}, {kind: objectstore.KindProfile}}
	for _, role := range prompt.Roles {
		collections = append(collections, collection{kind: objectstore.KindPrompt, scope: string(role)})
	}

	report := &backendReport{Backend: string(storage.Select(e.cfg.Storage))}
	for _, c := range collections {
		recs, err := e.opened.Backend.List(ctx, c.kind, c.scope)
		if err != nil {
			return nil, err
		}
		report.Collections = append(report.Collections, collectionCount{
			Collection: objectstore.CollectionPrefix(c.kind, c.scope),
			Records:    len(recs),
		})
	}
	return report, nil
}
