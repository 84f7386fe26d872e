package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Strob0t/interviewlab/internal/domain/prompt"
	"github.com/Strob0t/interviewlab/internal/service"
)

func newPromptsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage prompt versions of the interviewer (agentA), persona (agentB) and evaluator (agentC)",
	}

	var create prompt.CreateRequest
	var file string
	createCmd := &cobra.Command{
		Use:   "create <role>",
		Short: "Store a new prompt version read from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := prompt.ParseRole(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			create.Content = string(data)
			return opts.withEnv(cmd.Context(), func(e *env) error {
				p, err := service.NewPromptService(e.store, nil, 0).Create(cmd.Context(), role, create)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created prompt %s (active: %t)\n", p.ID, p.IsActive)
				return err
			})
		},
	}
	createCmd.Flags().StringVar(&create.Author, "author", "", "author of the version (required)")
	createCmd.Flags().StringVar(&create.Name, "name", "", "display name")
	createCmd.Flags().BoolVar(&create.SetAsActive, "activate", false, "make the new version active")
	createCmd.Flags().StringVarP(&file, "file", "f", "", "file holding the prompt text (required)")
	_ = createCmd.MarkFlagRequired("file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <role>",
			Short: "List the versions of a role, newest first",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				role, err := prompt.ParseRole(args[0])
				if err != nil {
					return err
				}
				return opts.withEnv(cmd.Context(), func(e *env) error {
					list, err := service.NewPromptService(e.store, nil, 0).List(cmd.Context(), role)
					if err != nil {
						return err
					}
					return emit(cmd.OutOrStdout(), opts.format, list, "ID\tNAME\tAUTHOR\tACTIVE\tCREATED", func() [][]any {
						rows := make([][]any, 0, len(list))
						for i := range list {
							p := &list[i]
							created := "-"
							if !p.CreatedAt.IsZero() {
								created = p.CreatedAt.Local().Format("2006-01-02 15:04")
							}
							rows = append(rows, []any{p.ID, p.Name, p.Author, p.IsActive, created})
						}
						return rows
					})
				})
			},
		},
		&cobra.Command{
			Use:   "activate <role> <id>",
			Short: "Make a version the active prompt of its role",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				role, err := prompt.ParseRole(args[0])
				if err != nil {
					return err
				}
				return opts.withEnv(cmd.Context(), func(e *env) error {
					if _, err := service.NewPromptService(e.store, nil, 0).Activate(cmd.Context(), role, args[1]); err != nil {
						return err
					}
					_, err := fmt.Fprintf(cmd.OutOrStdout(), "activated %s prompt %s\n", role, args[1])
					return err
				})
			},
		},
		createCmd,
	)
	return cmd
}
