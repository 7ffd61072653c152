package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/records"
)

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func (a *app) login(ctx context.Context, args []string, signup bool) error {
	name := "login"
	if signup {
		name = "signup"
	}
	fs := newFlagSet(name, a.out)
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pw := *password
	if pw == "" && *username != "" {
		var err error
		if pw, err = a.promptPassword(); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	var err error
	if signup {
		err = a.auth.Signup(ctx, *username, pw)
	} else {
		err = a.auth.Login(ctx, *username, pw)
	}
	switch {
	case err == nil:
		id, _ := a.auth.Identity()
		fmt.Fprintf(a.out, "Logged in as %s\n", id.Username)
		return nil
	case errors.Is(err, auth.ErrMissingCredentials):
		return errors.New("username and password are required")
	default:
		if msg := a.auth.LastError(); msg != "" {
			fmt.Fprintln(a.out, msg)
			return reported(err)
		}
		return err
	}
}

func (a *app) whoami() error {
	id, ok := a.auth.Identity()
	if !ok {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.out, "%s (id %s)\n", id.Username, id.ID)
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	dash := dashboard.New(a.client, a.auth, a.logger)
	expenses := records.NewExpenses(a.client, a.auth, nil, a.recordOptions()...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := dash.Load(gctx)
		return err
	})
	g.Go(func() error { return expenses.Load(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	id, _ := a.auth.Identity()
	t := dash.Totals()
	fmt.Fprintf(a.out, "Welcome, %s\n\n", id.Username)
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total income\t%s\n", core.FormatAmount(t.Income))
	fmt.Fprintf(tw, "Total expense\t%s\n", core.FormatAmount(t.Expense))
	fmt.Fprintf(tw, "Balance\t%s\n", core.FormatAmount(t.Balance))
	if err := tw.Flush(); err != nil {
		return err
	}

	byCategory := dashboard.ByCategory(expenses.Items())
	if len(byCategory) == 0 {
		return nil
	}
	fmt.Fprintln(a.out, "\nExpenses by category")
	tw = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, c := range byCategory {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, core.FormatAmount(c.Amount))
	}
	return tw.Flush()
}

// subcommand splits "list|add|update|delete" from its flags.
func subcommand(kind string, args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%s: missing action (list, add, update, delete)", kind)
	}
	return args[0], args[1:], nil
}

// controllerError turns a controller failure into the process error. The
// controller has already printed a notification for it.
func controllerError(err error) error {
	if err == nil {
		return nil
	}
	return reported(err)
}

func (a *app) income(ctx context.Context, args []string) error {
	action, rest, err := subcommand("income", args)
	if err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}
	c := records.NewIncomes(a.client, a.auth, a.recordOptions()...)

	fs := newFlagSet("income "+action, a.out)
	page := fs.Int("page", 1, "Page to show")
	id := fs.String("id", "", "Income id")
	amount := fs.String("amount", "", "Amount, e.g. 12.50")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	switch action {
	case "list":
		if err := c.Load(ctx); err != nil {
			return controllerError(err)
		}
		return printPage[core.Income](a.out, c, *page, []string{"ID", "AMOUNT", "DATE"}, func(in core.Income) []string {
			return []string{in.ID.String(), core.FormatAmount(in.Amount), in.CreatedDate}
		})
	case "add":
		_, err := c.Add(ctx, records.IncomeFields{Amount: amountArg(*amount)})
		return controllerError(err)
	case "update":
		return controllerError(c.Update(ctx, core.ID(*id), records.IncomeFields{Amount: amountArg(*amount)}))
	case "delete":
		return controllerError(c.Remove(ctx, core.ID(*id)))
	default:
		return fmt.Errorf("income: unknown action %q", action)
	}
}

func (a *app) expense(ctx context.Context, args []string) error {
	action, rest, err := subcommand("expense", args)
	if err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	fs := newFlagSet("expense "+action, a.out)
	page := fs.Int("page", 1, "Page to show")
	id := fs.String("id", "", "Expense id")
	amount := fs.String("amount", "", "Amount, e.g. 12.50")
	category := fs.String("category", "", "Category id (add defaults to the first category, update keeps the current one)")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	options := records.NewCategoryOptions(a.client, a.auth, a.notify)
	c := records.NewExpenses(a.client, a.auth, options.Find, a.recordOptions()...)

	// add preselects the first category, update keeps the expense's own
	categoryID := func() (core.ID, error) {
		if err := options.Load(ctx); err != nil {
			return "", reported(err)
		}
		if *category != "" {
			return core.ID(*category), nil
		}
		if action == "update" {
			if err := c.Load(ctx); err != nil {
				return "", controllerError(err)
			}
			if e, ok := c.Find(core.ID(*id)); ok {
				return e.Category.ID, nil
			}
			return "", nil
		}
		if def, ok := options.Default(); ok {
			return def.ID, nil
		}
		return "", nil
	}

	switch action {
	case "list":
		if err := c.Load(ctx); err != nil {
			return controllerError(err)
		}
		return printPage[core.Expense](a.out, c, *page, []string{"ID", "AMOUNT", "CATEGORY", "DATE"}, func(e core.Expense) []string {
			return []string{e.ID.String(), core.FormatAmount(e.Amount), e.Category.Name, e.CreatedDate}
		})
	case "add", "update":
		catID, err := categoryID()
		if err != nil {
			return err
		}
		fields := records.ExpenseFields{Amount: amountArg(*amount), CategoryID: catID}
		if action == "add" {
			_, err = c.Add(ctx, fields)
			return controllerError(err)
		}
		return controllerError(c.Update(ctx, core.ID(*id), fields))
	case "delete":
		return controllerError(c.Remove(ctx, core.ID(*id)))
	default:
		return fmt.Errorf("expense: unknown action %q", action)
	}
}

func (a *app) category(ctx context.Context, args []string) error {
	action, rest, err := subcommand("category", args)
	if err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}
	c := records.NewCategories(a.client, a.auth, a.recordOptions()...)

	fs := newFlagSet("category "+action, a.out)
	page := fs.Int("page", 1, "Page to show")
	id := fs.String("id", "", "Category id")
	name := fs.String("name", "", "Category name")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	switch action {
	case "list":
		if err := c.Load(ctx); err != nil {
			return controllerError(err)
		}
		return printPage[core.Category](a.out, c, *page, []string{"ID", "NAME"}, func(cat core.Category) []string {
			return []string{cat.ID.String(), cat.Name}
		})
	case "add":
		_, err := c.Add(ctx, records.CategoryFields{Name: *name})
		return controllerError(err)
	case "update":
		return controllerError(c.Update(ctx, core.ID(*id), records.CategoryFields{Name: *name}))
	case "delete":
		return controllerError(c.Remove(ctx, core.ID(*id)))
	default:
		return fmt.Errorf("category: unknown action %q", action)
	}
}

// amountArg parses -amount. Unparseable input becomes zero so the record
// validation reports it like the form would.
func amountArg(s string) decimal.Decimal {
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

type pageable[T any] interface {
	GoTo(page int) bool
	Page() []T
	CurrentPage() int
	TotalPages() int
	Len() int
}

func printPage[T any](out io.Writer, c pageable[T], page int, header []string, row func(T) []string) error {
	if c.Len() == 0 {
		fmt.Fprintln(out, "No entries")
		return nil
	}
	if page != c.CurrentPage() && !c.GoTo(page) {
		return fmt.Errorf("page %d out of range (1-%d)", page, c.TotalPages())
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, it := range c.Page() {
		fmt.Fprintln(tw, strings.Join(row(it), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Page %d of %d\n", c.CurrentPage(), c.TotalPages())
	return nil
}
