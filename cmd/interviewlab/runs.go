package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/Strob0t/interviewlab/internal/adapter/llm"
	"github.com/Strob0t/interviewlab/internal/domain/run"
	"github.com/Strob0t/interviewlab/internal/resilience"
	"github.com/Strob0t/interviewlab/internal/service"
)

// quietHub drops run events; the CLI has no connected clients.
type quietHub struct{}

func (quietHub) BroadcastEvent(context.Context, string, any) {}

func newRunsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, inspect, delete and import runs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List runs, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withEnv(cmd.Context(), func(e *env) error {
					return listRuns(cmd.Context(), cmd.OutOrStdout(), e, opts.format)
				})
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print one run with its transcript and evaluation as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withEnv(cmd.Context(), func(e *env) error {
					r, err := e.store.GetRun(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), r)
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a run",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withEnv(cmd.Context(), func(e *env) error {
					runs := service.NewRunService(e.store, service.NewPromptService(e.store, nil, 0), quietHub{})
					if err := runs.Delete(cmd.Context(), args[0]); err != nil {
						return err
					}
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", args[0])
					return err
				})
			},
		},
		newImportCmd(opts),
	)
	return cmd
}

func listRuns(ctx context.Context, w io.Writer, e *env, format string) error {
	list, err := e.store.ListRuns(ctx)
	if err != nil {
		return err
	}
	return emit(w, format, list, "ID\tMODE\tSTATUS\tTURNS\tSCORE\tCREATED", func() [][]any {
		rows := make([][]any, 0, len(list))
		for i := range list {
			r := &list[i]
			score := "-"
			if r.Evaluation != nil {
				score = fmt.Sprintf("%g", r.Evaluation.OverallScore)
			}
			rows = append(rows, []any{r.ID, r.Mode, r.Status, r.TurnCount, score, r.CreatedAt.Local().Format(time.DateTime)})
		}
		return rows
	})
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Evaluate a finished transcript and store it as a completed run",
		Long: `Reads a JSON document with initialQuestion, optional taskTopic and a
transcript of {role, content, timestamp?} entries, where role is agentA,
agentB or user. The transcript is scored once by the evaluator.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var req run.ImportRequest
			if err := sonic.ConfigStd.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			return opts.withEnv(cmd.Context(), func(e *env) error {
				client := llm.NewClient(e.cfg.LLM.BaseURL, e.cfg.LLM.APIKey, e.cfg.LLM.Model, e.cfg.LLM.Timeout)
				client.SetBreaker(resilience.NewBreaker(e.cfg.Breaker.MaxFailures, e.cfg.Breaker.Timeout))

				prompts := service.NewPromptService(e.store, nil, 0)
				orch := service.NewOrchestrator(e.store, prompts,
					service.NewProfileService(e.store),
					service.NewSettingsService(e.store, e.cfg.LLM.Model),
					client, client, quietHub{}, e.cfg.Orchestrator)

				r, err := orch.Import(cmd.Context(), req)
				if err != nil {
					return err
				}
				return emit(cmd.OutOrStdout(), opts.format, r, "ID\tTURNS\tSCORE\tSTOP TIMING", func() [][]any {
					return [][]any{{r.ID, r.TurnCount, r.Evaluation.OverallScore, r.Evaluation.StopTiming}}
				})
			})
		},
	}
}
