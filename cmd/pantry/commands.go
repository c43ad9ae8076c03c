package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"pantry-planner/internal/app"
	"pantry-planner/internal/config"
	"pantry-planner/internal/database"
	"pantry-planner/internal/logger"
	"pantry-planner/internal/metrics"
	"pantry-planner/internal/shopping"
	"pantry-planner/internal/stock"
	"pantry-planner/internal/storage"
)

var commands = []subcommands.Command{
	&listCmd{},
	&buyCmd{},
	&mealsCmd{},
	&stockCmd{},
	&addStockCmd{},
	&rmStockCmd{},
	&dishesCmd{},
	&rmDishCmd{},
	&planCmd{},
	&addMemberCmd{},
	&rmMemberCmd{},
	&importCmd{},
	&exportCmd{},
	&metricsCleanupCmd{},
}

// env is the application opened on the configured database.
type env struct {
	app     *app.App
	metrics *metrics.Store
	db      *database.DB
}

func (e *env) Close() { e.db.Close() }

func open() (*env, error) {
	config.LoadDotEnv()
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.LogLevel)

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	exports, err := storage.NewExportStore(cfg.ExportDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize export store: %w", err)
	}

	deps := app.SQLiteDeps(db, exports)
	store := metrics.NewStore(db.SQL)
	deps.Metrics = store
	return &env{app: app.NewApp(cfg, deps), metrics: store, db: db}, nil
}

// run opens the application, runs fn and maps its error to an exit status.
func run(ctx context.Context, fn func(ctx context.Context, e *env) error) subcommands.ExitStatus {
	e, err := open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	if err := fn(ctx, e); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type listCmd struct {
	ids   bool
	reset bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "compute this week's shopping list" }
func (*listCmd) Usage() string {
	return `pantry list [-ids] [-reset]

  Reconciles the weekly plan against the stock, removes expired entries
  and prints the shopping list. With -ids, item IDs are listed for use
  with the buy command. With -reset, the saved list and its checks are
  dropped first.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.ids, "ids", false, "Print the item IDs after the list.")
	f.BoolVar(&c.reset, "reset", false, "Forget this week's saved list before computing it.")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *env) error {
		if c.reset {
			if err := e.app.ResetShoppingList(ctx); err != nil {
				return err
			}
		}
		report, err := e.app.ShoppingList(ctx)
		if err != nil {
			return err
		}
		fmt.Print(shopping.Export(report.Result, report.List.CheckedSet(), e.app.Currency(), time.Now()))
		for _, w := range report.Result.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
		if c.ids {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\nID\tITEM\tQUANTITY")
			for _, it := range report.List.Items {
				fmt.Fprintf(w, "%s\t%s\t%s %s\n", it.ID, it.Name, it.Quantity, it.Unit)
			}
			w.Flush()
		}
		return nil
	})
}

type buyCmd struct{}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "confirm purchased items" }
func (*buyCmd) Usage() string {
	return `pantry buy [item-id ...]

  Adds the given shopping list items to the stock. Without arguments the
  items checked on the saved list are used.
`
}
func (*buyCmd) SetFlags(*flag.FlagSet) {}

func (*buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *env) error {
		var ids []string
		if f.NArg() > 0 {
			ids = f.Args()
		}
		report, err := e.app.ConfirmPurchases(ctx, ids)
		if errors.Is(err, app.ErrNoShoppingList) {
			return fmt.Errorf("%w: run 'pantry list' first", err)
		}
		if err != nil {
			return err
		}
		if len(report.Purchased) == 0 {
			fmt.Println("Nothing to confirm.")
			return nil
		}
		for _, it := range report.Purchased {
			fmt.Printf("+ %s %s %s\n", it.Quantity, it.Unit, it.Name)
		}
		fmt.Printf("Spent: %s\n", shopping.FormatPrice(report.Result.Spent, e.app.Currency()))
		return nil
	})
}

type mealsCmd struct {
	day string
}

func (*mealsCmd) Name() string     { return "meals" }
func (*mealsCmd) Synopsis() string { return "consume the stock used by a day's meals" }
func (*mealsCmd) Usage() string {
	return `pantry meals [-d <day>]

  Decrements the stock by the ingredients of the dishes planned for the
  day, scaled to the family roster.
`
}

func (c *mealsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.day, "d", "", "Day of the week to confirm (defaults to today).")
}

func (c *mealsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *env) error {
		res, err := e.app.ConfirmMealsForDay(ctx, c.day)
		if err != nil {
			return err
		}
		for _, m := range res.Mutations {
			fmt.Println(m)
		}
		for _, w := range res.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
		return nil
	})
}

type stockCmd struct{}

func (*stockCmd) Name() string           { return "stock" }
func (*stockCmd) Synopsis() string       { return "list the stock with expiration status" }
func (*stockCmd) Usage() string          { return "pantry stock\n" }
func (*stockCmd) SetFlags(*flag.FlagSet) {}

func (*stockCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *env) error {
		lines, err := e.app.StockReport(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tQUANTITY\tCATEGORY\tSTATUS")
		for _, l := range lines {
			fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\n", l.Entry.ID, l.Entry.Name, l.Entry.Quantity, l.Entry.Unit, l.Entry.Category, l.Message)
		}
		return w.Flush()
	})
}

type addStockCmd struct {
	draft stock.Draft
}

func (*addStockCmd) Name() string     { return "stock-add" }
func (*addStockCmd) Synopsis() string { return "add a stock entry" }
func (*addStockCmd) Usage() string {
	return `pantry stock-add -name <name> -q <quantity> -unit <unit> -cat <category> [-exp YYYY-MM-DD]
`
}

func (c *addStockCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.draft.Name, "name", "", "Ingredient name.")
	f.StringVar(&c.draft.Quantity, "q", "", "Quantity, a positive number.")
	f.StringVar(&c.draft.Unit, "unit", "", "Unit of measure.")
	f.StringVar(&c.draft.Category, "cat", "", "Category.")
	f.StringVar(&c.draft.ExpirationDate, "exp", "", "Expiration date (YYYY-MM-DD).")
}

func (c *addStockCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *env) error {
		entry, err := e.app.AddStock(ctx, c.draft)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s %s) as %s\n", entry.Name, entry.Quantity, entry.Unit, entry.ID)
		return nil
	})
}

type rmStockCmd struct{}

func (*rmStockCmd) Name() string           { return "stock-rm" }
func (*rmStockCmd) Synopsis() string       { return "remove stock entries" }
func (*rmStockCmd) Usage() string          { return "pantry stock-rm <entry-id> ...\n" }
func (*rmStockCmd) SetFlags(*flag.FlagSet) {}

func (*rmStockCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "stock-rm needs at least one entry id")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, e *env) error {
		for _, id := range f.Args() {
			if err := e.app.RemoveStock(ctx, id); err != nil {
				return err
			}
			fmt.Println("Removed", id)
		}
		return nil
	})
}

type dishesCmd struct{}

func (*dishesCmd) Name() string           { return "dishes" }
func (*dishesCmd) Synopsis() string       { return "list the dish catalog" }
func (*dishesCmd) Usage() string          { return "pantry dishes\n" }
func (*dishesCmd) SetFlags(*flag.FlagSet) {}

func (*dishesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *env) error {
		dishes, err := e.app.ListDishes(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSERVINGS\tINGREDIENTS")
		for _, d := range dishes {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", d.ID, d.Name, d.Servings, len(d.Ingredients))
		}
		return w.Flush()
	})
}

type rmDishCmd struct{}

func (*rmDishCmd) Name() string           { return "dish-rm" }
func (*rmDishCmd) Synopsis() string       { return "remove dishes from the catalog" }
func (*rmDishCmd) Usage() string          { return "pantry dish-rm <dish-id> ...\n" }
func (*rmDishCmd) SetFlags(*flag.FlagSet) {}

func (*rmDishCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "dish-rm needs at least one dish id")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, e *env) error {
		for _, id := range f.Args() {
			if err := e.app.RemoveDish(ctx, id); err != nil {
				return err
			}
			fmt.Println("Removed", id)
		}
		return nil
	})
}

type planCmd struct{}

func (*planCmd) Name() string     { return "plan" }
func (*planCmd) Synopsis() string { return "set the dishes planned for a day" }
func (*planCmd) Usage() string {
	return `pantry plan <day> [dish-id ...]

  Replaces the dishes planned for the day. A dish may be repeated for
  several portions; no dishes clears the day.
`
}
func (*planCmd) SetFlags(*flag.FlagSet) {}

func (*planCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "plan needs a day")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, e *env) error {
		day, err := e.app.SetPlanDay(ctx, f.Arg(0), f.Args()[1:])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d dishes planned\n", day, f.NArg()-1)
		return nil
	})
}

type addMemberCmd struct {
	name string
	age  int
}

func (*addMemberCmd) Name() string     { return "member-add" }
func (*addMemberCmd) Synopsis() string { return "add a family member to the roster" }
func (*addMemberCmd) Usage() string    { return "pantry member-add -name <name> -age <years>\n" }

func (c *addMemberCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Member name.")
	f.IntVar(&c.age, "age", -1, "Age in years; under 12 counts as a child portion.")
}

func (c *addMemberCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *env) error {
		m, err := e.app.AddMember(ctx, c.name, c.age)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%d) as %s\n", m.Name, m.Age, m.ID)
		return nil
	})
}

type rmMemberCmd struct{}

func (*rmMemberCmd) Name() string           { return "member-rm" }
func (*rmMemberCmd) Synopsis() string       { return "remove family members from the roster" }
func (*rmMemberCmd) Usage() string          { return "pantry member-rm <member-id> ...\n" }
func (*rmMemberCmd) SetFlags(*flag.FlagSet) {}

func (*rmMemberCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "member-rm needs at least one member id")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, e *env) error {
		for _, id := range f.Args() {
			if err := e.app.RemoveMember(ctx, id); err != nil {
				return err
			}
			fmt.Println("Removed", id)
		}
		return nil
	})
}

type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "load dishes, plan, roster and stock from a YAML file" }
func (*importCmd) Usage() string {
	return `pantry import <household.yaml>

  Saves the dishes, replaces the weekly plan and family roster when present
  and adds the stock entries in a single batch.
`
}
func (*importCmd) SetFlags(*flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "import needs exactly one file")
		return subcommands.ExitUsageError
	}
	return run(ctx, func(ctx context.Context, e *env) error {
		summary, err := e.app.Import(ctx, f.Arg(0))
		if err != nil {
			return err
		}
		fmt.Printf("Imported %s.\n", summary)
		return nil
	})
}

type exportCmd struct {
	latest bool
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the shopping list to a text file" }
func (*exportCmd) Usage() string    { return "pantry export [-latest]\n" }

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.latest, "latest", false, "Print this week's last export instead of writing a new one.")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *env) error {
		if c.latest {
			path, err := e.app.LatestExport(ctx)
			if err != nil {
				return err
			}
			if path == "" {
				return errors.New("nothing exported this week")
			}
			fmt.Println(path)
			return nil
		}
		path, err := e.app.ExportShoppingList(ctx)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	})
}

type metricsCleanupCmd struct {
	days int
}

func (*metricsCleanupCmd) Name() string     { return "metrics-cleanup" }
func (*metricsCleanupCmd) Synopsis() string { return "remove old metric records" }
func (*metricsCleanupCmd) Usage() string    { return "pantry metrics-cleanup [-days N]\n" }

func (c *metricsCleanupCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 30, "Keep records for the last N days.")
}

func (c *metricsCleanupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(ctx context.Context, e *env) error {
		affected, err := e.metrics.Cleanup(ctx, c.days)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
		return nil
	})
}
