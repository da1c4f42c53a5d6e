package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func sessionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List or delete sender sessions",
	}
	cmd.AddCommand(sessionsListCmd(opts))
	cmd.AddCommand(sessionsDeleteCmd(opts))
	return cmd
}

func sessionsListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := opts.sessionStore(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cyan := color.New(color.FgCyan)

			list := store.List()
			if len(list) == 0 {
				fmt.Fprintln(out, "No sessions.")
				return nil
			}
			cyan.Fprintf(out, "%-36s  %-15s  %-10s  %-28s  %s\n", "ID", "PHONE", "LANGUAGE", "CURSOR", "UPDATED")
			for _, s := range list {
				cursor := s.LastMessage.Query
				if cursor == "" {
					cursor = "-"
				}
				fmt.Fprintf(out, "%-36s  %-15s  %-10s  %-28s  %s\n",
					s.ID, s.PhoneNumber, s.Language, cursor, s.UpdatedAt.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "\n%d session(s)\n", len(list))
			return nil
		},
	}
}

func sessionsDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|phone>",
		Short: "Delete the session matching an id or phone number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.sessionStore(cmd.Context())
			if err != nil {
				return err
			}
			n, err := store.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("no session matches %q", args[0])
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Deleted %d session(s) for %s\n", n, args[0])
			return nil
		},
	}
}
