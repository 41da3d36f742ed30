package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/LovationAdmin/trackit-api/insights"
	"github.com/LovationAdmin/trackit-api/tracker"

	"github.com/kr/text"
	"golang.org/x/term"
)

const (
	defaultDBPath = "trackit.db"
	defaultWidth  = 80
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `Usage: trackit [-db <db_path>] <command> [args]

Commands:
  add <text>                  parse and record an expense ("coffee 4.50 at starbucks")
  quick <category>            record a canned expense
  list [-search s] [-category c] [-limit n]
  dashboard                   monthly summary
  totals <week|month|year>    spend per category
  insights                    spending insights
  tree                        savings tree
  goal list
  goal add -title t -target n -type savings|category|total [-category c] [-days n]
  settings [-budget n] [-currency c] [-insights=true|false]
  export [-o file]            write a JSON backup (stdout by default)
  import <file|->             restore a JSON backup
  archive                     move expenses older than a year out of the active list`)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("trackit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	dbPath := fs.String("db", defaultDBPath, "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(stdout)
		return fmt.Errorf("missing command")
	}

	// DB_PATH ne s'applique que si -db n'a pas été fourni
	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == defaultDBPath {
		*dbPath = path
	}

	store, err := tracker.OpenSQLite(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	t, err := tracker.New(store)
	if err != nil {
		return fmt.Errorf("failed to load tracker: %w", err)
	}

	c := &cli{t: t, stdin: stdin, stdout: stdout, stderr: stderr, width: termWidth(stdout)}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "add":
		return c.add(rest)
	case "quick":
		return c.quick(rest)
	case "list":
		return c.list(rest)
	case "dashboard":
		return c.dashboard()
	case "totals":
		return c.totals(rest)
	case "insights":
		return c.insights()
	case "tree":
		return c.tree()
	case "goal", "goals":
		return c.goal(rest)
	case "settings":
		return c.settings(rest)
	case "export":
		return c.export(rest)
	case "import":
		return c.importDoc(rest)
	case "archive":
		return c.archive()
	default:
		usage(stdout)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

type cli struct {
	t      *tracker.Tracker
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	width  int
}

// termWidth falls back to 80 columns when stdout is not a terminal.
func termWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 20 {
			return width
		}
	}
	return defaultWidth
}

func (c *cli) symbol() string {
	switch c.t.Settings().Currency {
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	default:
		return "$"
	}
}

func (c *cli) printExpense(e *tracker.Expense) {
	fmt.Fprintf(c.stdout, "%s  %s%s  %-13s %s\n",
		e.Timestamp.Format("2006-01-02 15:04"), c.symbol(), e.Amount.StringFixed(2),
		e.Category, e.Description)
}

// afterChange re-evaluates goals and announces any achievement earned.
func (c *cli) afterChange() error {
	awarded, err := c.t.UpdateGoalProgress()
	if err != nil {
		return err
	}
	for _, a := range awarded {
		fmt.Fprintf(c.stdout, "🏆 %s (+%d points)\n", a.Title, a.Points)
	}
	return nil
}

func (c *cli) add(args []string) error {
	input := strings.TrimSpace(strings.Join(args, " "))
	if input == "" {
		return fmt.Errorf("add needs the expense text")
	}
	e, err := c.t.AddText(input)
	if err != nil {
		return err
	}
	fmt.Fprint(c.stdout, "Added: ")
	c.printExpense(e)
	return c.afterChange()
}

func (c *cli) quick(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("quick needs exactly one category")
	}
	e, err := c.t.QuickAdd(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(c.stdout, "Added: ")
	c.printExpense(e)
	return c.afterChange()
}

func (c *cli) list(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	search := fs.String("search", "", "Match description or category")
	category := fs.String("category", "", "Only this category")
	limit := fs.Int("limit", 10, "Maximum number of expenses")
	if err := fs.Parse(args); err != nil {
		return err
	}

	expenses := c.t.List(tracker.ListFilter{Search: *search, Category: *category, Limit: *limit})
	if len(expenses) == 0 {
		fmt.Fprintln(c.stdout, "No expenses yet.")
		return nil
	}
	for i := range expenses {
		c.printExpense(&expenses[i])
	}
	return nil
}

func (c *cli) dashboard() error {
	d := c.t.Dashboard()
	sym := c.symbol()
	fmt.Fprintf(c.stdout, "Today:         %s%.2f\n", sym, d.TodaySpent)
	fmt.Fprintf(c.stdout, "This month:    %s%.2f\n", sym, d.MonthlySpent)
	fmt.Fprintf(c.stdout, "Daily average: %s%.2f\n", sym, d.AverageDaily)
	fmt.Fprintf(c.stdout, "Budget left:   %s%.2f (%d%% used)\n", sym, d.BudgetLeft, d.BudgetUsedPercent)
	fmt.Fprintf(c.stdout, "All time:      %s%.2f\n", sym, d.TotalSpent)
	return nil
}

func (c *cli) totals(args []string) error {
	period := "month"
	if len(args) > 0 {
		period = args[0]
	}
	totals, err := c.t.PeriodTotals(period)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		fmt.Fprintf(c.stdout, "Nothing spent this %s.\n", period)
		return nil
	}
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if totals[names[i]] != totals[names[j]] {
			return totals[names[i]] > totals[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Fprintf(c.stdout, "%-16s %s%.2f\n", insights.CategoryLabel(name), c.symbol(), totals[name])
	}
	return nil
}

func (c *cli) insights() error {
	list := c.t.Insights()
	if len(list) == 0 {
		fmt.Fprintln(c.stdout, "Insights are switched off.")
		return nil
	}
	for _, in := range list {
		fmt.Fprintf(c.stdout, "%s %s\n", in.Icon, in.Title)
		fmt.Fprintln(c.stdout, text.Indent(text.Wrap(in.Description, c.width-4), "    "))
	}
	return nil
}

func (c *cli) tree() error {
	tr := c.t.Tree()
	fmt.Fprintf(c.stdout, "%s%s\n", tr.Stage, tr.Leaves)
	fmt.Fprintf(c.stdout, "Health %d%%, level %d, %d-day streak\n", tr.Health, tr.GrowthLevel, tr.Streak)
	return nil
}

func (c *cli) goal(args []string) error {
	if len(args) == 0 || args[0] == "list" {
		goals := c.t.Goals()
		if len(goals) == 0 {
			fmt.Fprintln(c.stdout, "No goals yet.")
			return nil
		}
		for _, g := range goals {
			mark := " "
			if g.Completed {
				mark = "x"
			}
			fmt.Fprintf(c.stdout, "[%s] %s  %.2f/%.2f (%s)\n", mark, g.Title, g.Current, g.Target, g.Type)
		}
		return nil
	}
	if args[0] != "add" {
		return fmt.Errorf("unknown goal command %q", args[0])
	}

	fs := flag.NewFlagSet("goal add", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	title := fs.String("title", "", "Goal title")
	target := fs.Float64("target", 0, "Target amount")
	kind := fs.String("type", tracker.GoalSavings, "savings, category or total")
	category := fs.String("category", "", "Category for category goals")
	days := fs.Int("days", 0, "Deadline in days from now (none when 0)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	in := tracker.GoalInput{Title: *title, Target: *target, Type: *kind, Category: *category}
	if *days > 0 {
		deadline := time.Now().AddDate(0, 0, *days)
		in.Deadline = &deadline
	}
	g, err := c.t.CreateGoal(in)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Goal created: %s (%.2f/%.2f)\n", g.Title, g.Current, g.Target)
	if g.Completed {
		fmt.Fprintln(c.stdout, "Already completed!")
	}
	return nil
}

func (c *cli) settings(args []string) error {
	s := c.t.Settings()
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	budget := fs.Float64("budget", s.MonthlyBudget, "Monthly budget")
	currency := fs.String("currency", s.Currency, "Currency code")
	insightsOn := fs.Bool("insights", s.AIInsights, "Show insights")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s.MonthlyBudget, s.Currency, s.AIInsights = *budget, *currency, *insightsOn
	if err := c.t.UpdateSettings(s); err != nil {
		return err
	}
	s = c.t.Settings()
	fmt.Fprintf(c.stdout, "Monthly budget %.2f %s, insights %t\n", s.MonthlyBudget, s.Currency, s.AIInsights)
	return nil
}

func (c *cli) export(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	out := fs.String("o", "", "Output file (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(c.t.Export(), "", "  ")
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = fmt.Fprintln(c.stdout, string(raw))
		return err
	}
	if err := os.WriteFile(*out, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Fprintf(c.stdout, "Exported to %s\n", *out)
	return nil
}

func (c *cli) importDoc(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("import needs a file name, or - for stdin")
	}
	var (
		raw []byte
		err error
	)
	if args[0] == "-" {
		raw, err = io.ReadAll(c.stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read import: %w", err)
	}
	if err := c.t.Import(raw); err != nil {
		if errors.Is(err, tracker.ErrInvalidImport) {
			return err
		}
		return fmt.Errorf("failed to import: %w", err)
	}
	fmt.Fprintln(c.stdout, "Data imported successfully")
	return nil
}

func (c *cli) archive() error {
	moved, err := c.t.Archive()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Archived %d expenses\n", moved)
	return nil
}
