package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"carevo-bot/internal/catalog"
	"carevo-bot/internal/domain"
)

func catalogCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Check the message catalog",
	}
	cmd.AddCommand(catalogValidateCmd(opts))
	cmd.AddCommand(catalogLanguagesCmd(opts))
	return cmd
}

func catalogValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Report every invalid message definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := opts.catalogRecord(cmd.Context())
			if err != nil {
				return err
			}
			var doc domain.Catalog
			if err := rec.Read(cmd.Context(), &doc); err != nil {
				return fmt.Errorf("read catalog: %w", err)
			}

			out := cmd.OutOrStdout()
			issues := flatten(catalog.Validate(doc))
			if len(issues) == 0 {
				color.New(color.FgGreen).Fprintf(out, "OK: %d messages, %d languages\n", len(doc.Messages), len(doc.Languages))
				return nil
			}
			red := color.New(color.FgRed)
			for _, issue := range issues {
				red.Fprint(out, "  - ")
				fmt.Fprintln(out, issue)
			}
			return fmt.Errorf("catalog has %d problem(s)", len(issues))
		},
	}
}

func catalogLanguagesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported languages with their reply number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, lang := range c.Languages() {
				fmt.Fprintf(out, "%d. %s\n", i+1, lang)
			}
			return nil
		},
	}
}

// flatten splits a joined error into its individual messages.
func flatten(err error) []string {
	if err == nil {
		return nil
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return strings.Split(err.Error(), "\n")
}
