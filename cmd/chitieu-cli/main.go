// Command chitieu-cli is a terminal client for the chitieu API. It keeps
// a session store for the selected month and renders the derived views
// the web UI shows: filtered list, category totals, budget remaining.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"chitieu/internal/api"
	"chitieu/internal/config"
	"chitieu/internal/core"
	"chitieu/internal/draft"
	"chitieu/internal/gemini"
	"chitieu/internal/session"
)

const usage = `usage: chitieu-cli [flags] <command> [args]

commands:
  list                     show the month's expenses and summary
  add <item> <amount>      add an expense
  edit <id> <item> <amount>  replace an expense's fields
  rm <id>                  delete an expense
  budget [value]           show or set the monthly budget
  draft <text>             parse free text into an expense draft
  draft-image <path>       parse a receipt image into an expense draft

flags:
`

func main() {
	_ = godotenv.Load()

	var (
		apiURL   = flag.String("api", envOr("CHITIEU_API_URL", "http://localhost:8081"), "API base URL")
		month    = flag.String("month", "", "month to view (YYYY-MM, default current)")
		search   = flag.String("search", "", "substring filter over item, category and purpose")
		category = flag.String("category", "", "exact category filter")
		cat      = flag.String("cat", "", "category for add/edit")
		purpose  = flag.String("purpose", "", "purpose for add/edit")
		date     = flag.String("date", "", "date for add/edit (YYYY-MM-DD, default today)")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	var parser draft.Parser
	if cfg.GeminiAPIKey != "" {
		parser = draft.NewGeminiParser(gemini.New(gemini.Config{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		}))
	}

	store := session.New(api.NewClient(*apiURL), parser)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, store, args, cmdOptions{
		month:    *month,
		search:   *search,
		category: *category,
		cat:      *cat,
		purpose:  *purpose,
		date:     *date,
	}); err != nil {
		fatal(err)
	}
}

type cmdOptions struct {
	month    string
	search   string
	category string
	cat      string
	purpose  string
	date     string
}

func run(ctx context.Context, store *session.Store, args []string, opts cmdOptions) error {
	if opts.month != "" {
		if err := store.SetMonth(ctx, opts.month); err != nil {
			return err
		}
	}
	store.SetSearch(opts.search)
	store.SetCategoryFilter(opts.category)

	switch cmd, rest := args[0], args[1:]; cmd {
	case "list":
		if err := store.Load(ctx); err != nil {
			return err
		}
		printSummary(store)
		return nil

	case "add":
		if len(rest) < 2 {
			return fmt.Errorf("add: need <item> <amount>")
		}
		amount, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return fmt.Errorf("add: invalid amount %q", rest[1])
		}
		if err := store.Load(ctx); err != nil {
			return err
		}
		err = store.Save(ctx, core.ExpenseFields{
			Item:     rest[0],
			Amount:   amount,
			Category: opts.cat,
			Purpose:  opts.purpose,
			Date:     opts.date,
		})
		if err != nil {
			return err
		}
		printSummary(store)
		return nil

	case "edit":
		if len(rest) < 3 {
			return fmt.Errorf("edit: need <id> <item> <amount>")
		}
		id, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("edit: invalid id %q", rest[0])
		}
		amount, err := strconv.ParseFloat(rest[2], 64)
		if err != nil {
			return fmt.Errorf("edit: invalid amount %q", rest[2])
		}
		if err := store.Load(ctx); err != nil {
			return err
		}
		err = store.Update(ctx, id, core.ExpenseFields{
			Item:     rest[1],
			Amount:   amount,
			Category: opts.cat,
			Purpose:  opts.purpose,
			Date:     opts.date,
		})
		if err != nil {
			return err
		}
		printSummary(store)
		return nil

	case "rm":
		if len(rest) < 1 {
			return fmt.Errorf("rm: need <id>")
		}
		id, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil {
			return fmt.Errorf("rm: invalid id %q", rest[0])
		}
		if err := store.Load(ctx); err != nil {
			return err
		}
		if err := store.Delete(ctx, id); err != nil {
			return err
		}
		printSummary(store)
		return nil

	case "budget":
		if len(rest) == 0 {
			if err := store.Load(ctx); err != nil {
				return err
			}
			fmt.Printf("budget: %s\nspent:  %s\nleft:   %s\n",
				vnd(store.Budget()), vnd(store.TotalSpent()), vnd(store.Remaining()))
			return nil
		}
		value, err := strconv.ParseFloat(rest[0], 64)
		if err != nil {
			return fmt.Errorf("budget: invalid value %q", rest[0])
		}
		return store.SetBudget(ctx, value)

	case "draft":
		if len(rest) < 1 {
			return fmt.Errorf("draft: need <text>")
		}
		d, err := store.DraftFromText(ctx, rest[0])
		if err != nil {
			return err
		}
		printDraft(d)
		return nil

	case "draft-image":
		if len(rest) < 1 {
			return fmt.Errorf("draft-image: need <path>")
		}
		data, err := os.ReadFile(rest[0])
		if err != nil {
			return err
		}
		d, err := store.DraftFromImage(ctx, data, mimeFromPath(rest[0]))
		if err != nil {
			return err
		}
		printDraft(d)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printSummary(store *session.Store) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tITEM\tAMOUNT\tCATEGORY\tPURPOSE")
	for _, e := range store.FilteredExpenses() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Date, e.Item, vnd(e.Amount), core.BucketCategory(e.Category), e.Purpose)
	}
	w.Flush()

	fmt.Println()
	for _, ct := range store.CategoryTotals() {
		fmt.Printf("  %-20s %s\n", ct.Name, vnd(ct.Amount))
	}
	if store.HasActiveFilter() {
		fmt.Printf("\nfiltered total: %s\n", vnd(store.FilteredTotal()))
	}
	fmt.Printf("total: %s  budget: %s  left: %s\n",
		vnd(store.TotalSpent()), vnd(store.Budget()), vnd(store.Remaining()))
}

func printDraft(d core.Draft) {
	fmt.Printf("item:     %s\namount:   %s\ncategory: %s\npurpose:  %s\n",
		d.Item, vnd(d.Amount), d.Category, d.Purpose)
}

// vnd renders an amount with thousands separators, the way VND sums are
// usually written.
func vnd(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var out []byte
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, intPart[i])
	}
	res := string(out) + frac
	if neg {
		res = "-" + res
	}
	return res
}

func mimeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "chitieu-cli:", err)
	os.Exit(1)
}
