package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"spendtrack/internal/log"
	"spendtrack/internal/services"
	"spendtrack/internal/storage"
)

// App carries what the commands need. Open is called lazily so that commands
// such as "banks" work without a database.
type App struct {
	Open      func(ctx context.Context) (*storage.Repository, error)
	Publisher services.EventPublisher
	Logger    *log.Logger
	CacheSize int
	CacheTTL  time.Duration
}

// NewRootCommand creates the spendctl command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "spendctl",
		Short: "Administer users, cards and statement imports",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCommand(app),
		newBanksCommand(),
		newUserCommand(app),
		newCardCommand(app),
		newImportCommand(app),
		newTotalsCommand(app),
	)
	return root
}

// withRepo opens the repository for the duration of fn.
func (a *App) withRepo(ctx context.Context, fn func(repo *storage.Repository) error) error {
	repo, err := a.Open(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()
	return fn(repo)
}
