package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// withServices wires the application for a one-shot command. Logs only reach
// the log file, if enabled, so command output stays readable.
func (o *options) withServices(cmd *cobra.Command, fn func(ctx context.Context, rt *services, p *printer) error) (err error) {
	ctx := cmd.Context()

	rt, err := o.open(ctx, io.Discard)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, rt.close(ctx))
	}()

	return fn(ctx, rt, newPrinter(cmd.OutOrStdout()))
}

func addRandom(topLevel *cobra.Command, o *options) {
	var category string

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Show a random quote.",
		Long:  "Show a random quote from --category, or from the selected filter when the flag is omitted.",
		Example: `
quotebook random
quotebook random --category Life
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withServices(cmd, func(ctx context.Context, rt *services, p *printer) error {
				if category == "" {
					category = rt.store.SelectedCategory(ctx)
				}

				q, err := rt.store.PickRandom(ctx, category)
				if err != nil {
					return err
				}

				p.quote(q)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Category to pick from.")

	topLevel.AddCommand(cmd)
}

func addAdd(topLevel *cobra.Command, o *options) {
	cmd := &cobra.Command{
		Use:   "add <text> <category>",
		Short: "Add a quote.",
		Example: `
quotebook add "Simplicity is the soul of efficiency." Engineering
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withServices(cmd, func(ctx context.Context, rt *services, p *printer) error {
				if _, err := rt.store.Add(ctx, args[0], args[1]); err != nil {
					return err
				}

				p.ok("Quote added successfully!")

				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func addList(topLevel *cobra.Command, o *options) {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quotes, optionally restricted to one category.",
		Example: `
quotebook list
quotebook list --category Motivation
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withServices(cmd, func(ctx context.Context, rt *services, p *printer) error {
				title := "Quotes"
				if category != "" && category != domain.CategoryAll {
					title += " in " + category
				}

				p.quotes(title, rt.store.Filtered(ctx, category))

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Only list quotes in this category.")

	topLevel.AddCommand(cmd)
}

func addCategories(topLevel *cobra.Command, o *options) {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories. The selected filter is marked with *.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withServices(cmd, func(ctx context.Context, rt *services, p *printer) error {
				p.categories(rt.store.Categories(ctx), rt.store.SelectedCategory(ctx))
				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}

func addFilter(topLevel *cobra.Command, o *options) {
	cmd := &cobra.Command{
		Use:   "filter [category]",
		Short: "Show or set the selected category filter.",
		Example: `
quotebook filter
quotebook filter Life
quotebook filter all
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withServices(cmd, func(ctx context.Context, rt *services, p *printer) error {
				if len(args) == 0 {
					_, _ = bold.Fprintln(p.out, rt.store.SelectedCategory(ctx))
					return nil
				}

				if err := rt.store.SetCategory(ctx, args[0]); err != nil {
					return err
				}

				p.ok("Filter set to %s.", rt.store.SelectedCategory(ctx))

				return nil
			})
		},
	}

	topLevel.AddCommand(cmd)
}
