package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wbrown/janus-queryspec/queryspec"
	"github.com/wbrown/janus-queryspec/queryspec/annotations"
	"github.com/wbrown/janus-queryspec/queryspec/eval"
	"github.com/wbrown/janus-queryspec/queryspec/expr"
	"github.com/wbrown/janus-queryspec/queryspec/sqlgen"
	"github.com/wbrown/janus-queryspec/queryspec/storage"
)

// stringList collects repeatable flag values.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var dbPath string
	var seedPath string
	var help bool
	var verbose bool
	var industry string
	var minEmployees int
	var activeOnly bool
	var searches stringList
	var orders stringList
	var skip int
	var take int
	var readonly bool
	var mirrorSQL bool

	flag.StringVar(&dbPath, "db", "", "database path")
	flag.StringVar(&seedPath, "seed", "", "seed the database from a YAML file before querying")
	flag.BoolVar(&help, "h", false, "show help")
	flag.BoolVar(&verbose, "verbose", false, "verbose mode (show evaluation annotations)")
	flag.StringVar(&industry, "industry", "", "keep companies whose industry equals this (case folded)")
	flag.IntVar(&minEmployees, "min-employees", -1, "keep companies with at least this many employees")
	flag.BoolVar(&activeOnly, "active", false, "keep active companies only")
	flag.Var(&searches, "search", "LIKE pattern for Name, pattern[@group] (repeatable)")
	flag.Var(&orders, "order", "sort key, member[:desc] (repeatable)")
	flag.IntVar(&skip, "skip", -1, "skip this many leading results")
	flag.IntVar(&take, "take", -1, "cap the result count")
	flag.BoolVar(&readonly, "readonly", false, "hint that results will not be modified")
	flag.BoolVar(&mirrorSQL, "sql", false, "mirror the query through sqlite and report parity")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [database_path]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "A query-specification engine over a company catalog.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                  # Run demo queries against the sample database\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -industry software -active       # Active software companies\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -search 'A%%@0' -search 'B%%@0'    # Names matching A%% or B%%\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -order Employees:desc -take 5    # Five largest companies\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -min-employees 100 -sql          # Mirror the query through sqlite\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -verbose -take 3                 # Show evaluation annotations\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	// Check for positional argument
	if dbPath == "" && flag.NArg() > 0 {
		dbPath = flag.Arg(0)
	}
	if dbPath == "" {
		dbPath = "companies.db"
	}

	// A fresh database gets seeded so queries have something to chew on.
	var store *storage.Store[storage.Company]
	var err error
	if _, statErr := os.Stat(dbPath); os.IsNotExist(statErr) {
		fmt.Printf("Database %s does not exist, seeding sample companies...\n\n", dbPath)
		store, err = storage.BuildSampleDatabase(storage.SampleConfig{SeedPath: seedPath, OutputPath: dbPath})
	} else {
		store, err = storage.OpenSampleDatabase(dbPath)
		if err == nil && seedPath != "" {
			// Seed ids derive from names, so reseeding upserts in place.
			var seed []storage.Company
			if seed, err = storage.LoadSeed(seedPath); err == nil {
				err = store.Put(seed...)
			}
		}
	}
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	// Create annotation handler if verbose mode
	var handler annotations.Handler
	if verbose {
		formatter := annotations.NewOutputFormatter(os.Stderr)
		handler = annotations.Handler(formatter.Handle)
	}

	hasQuery := industry != "" || minEmployees >= 0 || activeOnly ||
		len(searches) > 0 || len(orders) > 0 || skip >= 0 || take >= 0 || readonly

	if !hasQuery {
		runDemo(store, handler, mirrorSQL)
		return
	}

	spec, err := buildSpec(store.Schema(), queryFlags{
		industry:     industry,
		minEmployees: minEmployees,
		activeOnly:   activeOnly,
		searches:     searches,
		orders:       orders,
		skip:         skip,
		take:         take,
		readonly:     readonly,
	})
	if err != nil {
		log.Fatalf("Invalid query: %v", err)
	}
	runQuery(store, handler, spec, mirrorSQL)
}

type queryFlags struct {
	industry     string
	minEmployees int
	activeOnly   bool
	searches     []string
	orders       []string
	skip, take   int
	readonly     bool
}

// buildSpec turns the flag surface into one specification.
func buildSpec(schema *queryspec.Schema[storage.Company], q queryFlags) (*queryspec.Spec[storage.Company], error) {
	spec := queryspec.New(schema)

	if q.industry != "" {
		industry := strings.ToLower(q.industry)
		if err := spec.WhereFunc(func(x *expr.Param) expr.Node {
			return expr.Eq(expr.Lower(expr.Access(x, "Industry")), expr.Constant(industry))
		}); err != nil {
			return nil, err
		}
	}
	if q.minEmployees >= 0 {
		n := q.minEmployees
		if err := spec.WhereFunc(func(x *expr.Param) expr.Node {
			return expr.Ge(expr.Access(x, "Employees"), expr.Constant(n))
		}); err != nil {
			return nil, err
		}
	}
	if q.activeOnly {
		if err := spec.WhereFunc(func(x *expr.Param) expr.Node {
			return expr.Access(x, "Active")
		}); err != nil {
			return nil, err
		}
	}

	name, ok := schema.Selector("Name")
	if !ok {
		return nil, fmt.Errorf("schema has no Name member")
	}
	for _, raw := range q.searches {
		pattern, group, err := parseSearch(raw)
		if err != nil {
			return nil, err
		}
		if err := spec.Search(name, pattern, group); err != nil {
			return nil, err
		}
	}

	for i, raw := range q.orders {
		member, desc, err := parseOrder(raw)
		if err != nil {
			return nil, err
		}
		sel, ok := schema.Selector(member)
		if !ok {
			return nil, fmt.Errorf("unknown sort member %q", member)
		}
		switch {
		case i == 0 && desc:
			err = spec.OrderByDescending(sel)
		case i == 0:
			err = spec.OrderBy(sel)
		case desc:
			err = spec.ThenByDescending(sel)
		default:
			err = spec.ThenBy(sel)
		}
		if err != nil {
			return nil, err
		}
	}

	if q.skip >= 0 {
		if err := spec.SetSkip(q.skip); err != nil {
			return nil, err
		}
	}
	if q.take >= 0 {
		if err := spec.SetTake(q.take); err != nil {
			return nil, err
		}
	}
	spec.SetReadOnly(q.readonly)
	return spec, nil
}

// parseSearch splits pattern[@group]; the group defaults to 0.
func parseSearch(raw string) (string, int, error) {
	pattern := raw
	group := 0
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		g, err := strconv.Atoi(raw[at+1:])
		if err != nil {
			return "", 0, fmt.Errorf("search %q: group must be a number", raw)
		}
		pattern, group = raw[:at], g
	}
	if pattern == "" {
		return "", 0, fmt.Errorf("search %q: empty pattern", raw)
	}
	return pattern, group, nil
}

// parseOrder splits member[:desc].
func parseOrder(raw string) (string, bool, error) {
	member := raw
	desc := false
	if colon := strings.IndexByte(raw, ':'); colon >= 0 {
		dir := raw[colon+1:]
		member = raw[:colon]
		switch dir {
		case "desc":
			desc = true
		case "asc", "":
		default:
			return "", false, fmt.Errorf("order %q: direction must be asc or desc", raw)
		}
	}
	if member == "" {
		return "", false, fmt.Errorf("order %q: empty member", raw)
	}
	return member, desc, nil
}

// runQuery evaluates one specification and prints its results.
func runQuery(store *storage.Store[storage.Company], handler annotations.Handler, spec *queryspec.Spec[storage.Company], mirrorSQL bool) {
	fmt.Printf("Query: %s\n", spec.String())

	start := time.Now()
	seq, err := store.QueryWithHandler(spec, handler)
	var companies []storage.Company
	if err == nil {
		companies, err = eval.Materialize(seq)
	}
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Execution error: %v\n", err)
		os.Exit(1)
	}

	table, err := eval.SequenceString(store.Schema(), eval.FromSlice(companies))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Formatting error: %v\n", err)
		os.Exit(1)
	}

	// Fold the timing into the row count line
	lines := strings.Split(table, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "_") && strings.HasSuffix(lines[i], "rows_") {
			rowLine := strings.TrimSuffix(lines[i], "_")
			lines[i] = rowLine + fmt.Sprintf(" (%.3fms)_", float64(elapsed.Microseconds())/1000.0)
			break
		}
	}
	fmt.Println(strings.Join(lines, "\n"))

	if mirrorSQL {
		mirrorThroughSQL(store, spec, companies)
	}
}

// runDemo evaluates a handful of canned specifications.
func runDemo(store *storage.Store[storage.Company], handler annotations.Handler, mirrorSQL bool) {
	fmt.Println("=== Janus QuerySpec Demo ===")

	schema := store.Schema()
	name, _ := schema.Selector("Name")
	industry, _ := schema.Selector("Industry")
	employees, _ := schema.Selector("Employees")
	revenue, _ := schema.Selector("Revenue")

	demos := []struct {
		title string
		build func(spec *queryspec.Spec[storage.Company]) error
	}{
		{
			title: "Active software and biotech companies, by name",
			build: func(spec *queryspec.Spec[storage.Company]) error {
				if err := spec.WhereFunc(func(x *expr.Param) expr.Node {
					return expr.Access(x, "Active")
				}); err != nil {
					return err
				}
				if err := spec.Search(industry, "software", 0); err != nil {
					return err
				}
				if err := spec.Search(industry, "biotech", 0); err != nil {
					return err
				}
				return spec.OrderBy(name)
			},
		},
		{
			title: "At least 300 employees, largest first",
			build: func(spec *queryspec.Spec[storage.Company]) error {
				if err := spec.WhereFunc(func(x *expr.Param) expr.Node {
					return expr.Ge(expr.Access(x, "Employees"), expr.Constant(300))
				}); err != nil {
					return err
				}
				return spec.OrderByDescending(employees)
			},
		},
		{
			title: "Top three by revenue",
			build: func(spec *queryspec.Spec[storage.Company]) error {
				if err := spec.OrderByDescending(revenue); err != nil {
					return err
				}
				return spec.SetTake(3)
			},
		},
		{
			title: "Names containing Energy",
			build: func(spec *queryspec.Spec[storage.Company]) error {
				if err := spec.WhereFunc(func(x *expr.Param) expr.Node {
					return expr.Contains(expr.Access(x, "Name"), expr.Constant("Energy"))
				}); err != nil {
					return err
				}
				return spec.OrderBy(name)
			},
		},
	}

	for _, demo := range demos {
		fmt.Printf("\n-- %s\n", demo.title)
		spec := queryspec.New(schema)
		if err := demo.build(spec); err != nil {
			fmt.Printf("Build error: %v\n", err)
			continue
		}
		runQuery(store, handler, spec, mirrorSQL)
	}
}

const createCompanyTable = `CREATE TABLE "Company" (
	"Id" TEXT PRIMARY KEY,
	"Name" TEXT NOT NULL,
	"Industry" TEXT NOT NULL,
	"Employees" INTEGER NOT NULL,
	"Revenue" REAL NOT NULL,
	"Active" BOOLEAN NOT NULL
)`

const insertCompany = `INSERT INTO "Company" ("Id", "Name", "Industry", "Employees", "Revenue", "Active") VALUES (?, ?, ?, ?, ?, ?)`

// mirrorThroughSQL replays the specification against an in-memory sqlite
// copy of the store and reports whether both backends agree.
func mirrorThroughSQL(store *storage.Store[storage.Company], spec *queryspec.Spec[storage.Company], want []storage.Company) {
	fmt.Println("\n=== SQL mirror ===")

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		log.Fatalf("Failed to open sqlite: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(createCompanyTable); err != nil {
		log.Fatalf("Failed to create mirror table: %v", err)
	}
	all, err := eval.Materialize(store.Scan())
	if err != nil {
		log.Fatalf("Failed to scan companies: %v", err)
	}
	for _, c := range all {
		if _, err := db.Exec(insertCompany, c.ID.String(), c.Name, c.Industry, c.Employees, c.Revenue, c.Active); err != nil {
			log.Fatalf("Failed to load mirror: %v", err)
		}
	}

	compiler := sqlgen.NewCompiler(store.Schema(), "Company")
	query, params, err := compiler.Compile(spec)
	if err != nil {
		fmt.Printf("Not expressible in SQL: %v\n", err)
		return
	}
	fmt.Printf("SQL: %s\nParams: %v\n", query, params)

	start := time.Now()
	got, err := compiler.Select(context.Background(), db, spec, scanCompany)
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("SQL execution failed: %v", err)
	}

	ordered := len(spec.OrderChain()) > 0
	_, hasSkip := spec.Skip()
	_, hasTake := spec.Take()
	if !ordered && (hasSkip || hasTake) {
		fmt.Printf("Parity: skipped, a window without an order chain selects backend-dependent rows (sqlite returned %d in %.3fms)\n",
			len(got), float64(elapsed.Microseconds())/1000.0)
		return
	}
	if companiesMatch(want, got, ordered) {
		fmt.Printf("Parity: OK, both backends returned %d rows (sqlite %.3fms)\n",
			len(got), float64(elapsed.Microseconds())/1000.0)
	} else {
		fmt.Printf("Parity: MISMATCH, badger returned %d rows, sqlite returned %d\n", len(want), len(got))
	}
}

func scanCompany(rows *sql.Rows) (storage.Company, error) {
	var c storage.Company
	var id string
	if err := rows.Scan(&id, &c.Name, &c.Industry, &c.Employees, &c.Revenue, &c.Active); err != nil {
		return storage.Company{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return storage.Company{}, fmt.Errorf("bad id %q: %w", id, err)
	}
	c.ID = parsed
	return c, nil
}

// companiesMatch compares result sets, pairwise when an order chain fixed
// the sequence and as a multiset otherwise.
func companiesMatch(want, got []storage.Company, ordered bool) bool {
	if len(want) != len(got) {
		return false
	}
	if ordered {
		for i := range want {
			if want[i].ID != got[i].ID {
				return false
			}
		}
		return true
	}
	counts := make(map[uuid.UUID]int, len(want))
	for _, c := range want {
		counts[c.ID]++
	}
	for _, c := range got {
		counts[c.ID]--
		if counts[c.ID] < 0 {
			return false
		}
	}
	return true
}
