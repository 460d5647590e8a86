package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spendtrack/internal/bank"
	"spendtrack/internal/cache"
	"spendtrack/internal/core"
	"spendtrack/internal/services"
	"spendtrack/internal/storage"
)

func newMigrateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withRepo(cmd.Context(), func(repo *storage.Repository) error {
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", repo.Driver())
				return nil
			})
		},
	}
}

func newBanksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "List the supported statement formats",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, b := range bank.All() {
				fmt.Fprintln(cmd.OutOrStdout(), b)
			}
		},
	}
}

func newUserCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add NAME",
		Short: "Create a user and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withRepo(cmd.Context(), func(repo *storage.Repository) error {
				u, err := repo.CreateUser(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), u.ID)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withRepo(cmd.Context(), func(repo *storage.Repository) error {
				users, err := repo.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME")
				for _, u := range users {
					fmt.Fprintf(tw, "%s\t%s\n", u.ID, u.Name)
				}
				return tw.Flush()
			})
		},
	})
	return cmd
}

func newCardCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Manage credit cards",
	}

	var userID, name, cardType string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a credit card and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			card := core.CreditCard{UserID: userID, CardName: name, CardType: cardType}
			if err := card.Validate(); err != nil {
				return err
			}
			return app.withRepo(cmd.Context(), func(repo *storage.Repository) error {
				created, err := repo.CreateCreditCard(cmd.Context(), card)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), created.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&userID, "user", "", "owner user id (required)")
	add.Flags().StringVar(&name, "name", "", "card name (required)")
	add.Flags().StringVar(&cardType, "type", "", "card type, e.g. Amex (required)")
	_ = add.MarkFlagRequired("user")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("type")

	var listUser string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's credit cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withRepo(cmd.Context(), func(repo *storage.Repository) error {
				cards, err := repo.ListCreditCards(cmd.Context(), listUser)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTYPE")
				for _, c := range cards {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.CardName, c.CardType)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().StringVar(&listUser, "user", "", "owner user id (required)")
	_ = list.MarkFlagRequired("user")

	cmd.AddCommand(add, list)
	return cmd
}

// newImportCommand imports a statement from the local filesystem. The file is
// left in place.
func newImportCommand(app *App) *cobra.Command {
	var req services.ImportRequest

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a bank statement CSV as a new bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withRepo(cmd.Context(), func(repo *storage.Repository) error {
				store := services.NewRepositoryStore(repo)
				users := services.NewUserDirectory(store, cache.NewLRUCache[string](app.CacheSize, app.CacheTTL))
				svc := services.NewImportService(store, users, app.Publisher, app.Logger)

				res, err := svc.Import(cmd.Context(), req, services.Upload{Path: args[0]})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "bill %s: %d imported, %d skipped, total due %s\n",
					res.BillID, res.Imported, res.Skipped, core.Round2(res.TotalDue).StringFixed(2))
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Bank, "bank", "", "statement format: Amex, RBC or Scotia")
	f.StringVar(&req.CreditCardID, "card", "", "credit card id")
	f.StringVar(&req.UserID, "user", "", "user id")
	f.StringVar(&req.BillingPeriodStart, "start", "", "billing period start (yyyy-MM-dd)")
	f.StringVar(&req.BillingPeriodEnd, "end", "", "billing period end (yyyy-MM-dd)")
	f.StringVar(&req.PaymentDueDate, "due", "", "payment due date (yyyy-MM-dd)")
	return cmd
}

func newTotalsCommand(app *App) *cobra.Command {
	var userID, start, end string

	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Print spending per cardholder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := core.NewDateRange(start, end)
			if err != nil {
				return err
			}
			return app.withRepo(cmd.Context(), func(repo *storage.Repository) error {
				totals, err := repo.CardholderTotals(cmd.Context(), userID, rng)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CARDHOLDER\tTOTAL")
				for _, t := range totals {
					fmt.Fprintf(tw, "%s\t%s\n", t.CardholderName, t.TotalAmountSpent.StringFixed(2))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	cmd.Flags().StringVar(&start, "start", "", "range start (yyyy-MM-dd)")
	cmd.Flags().StringVar(&end, "end", "", "range end (yyyy-MM-dd)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
