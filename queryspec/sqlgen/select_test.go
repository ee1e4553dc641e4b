package sqlgen

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/wbrown/janus-queryspec/queryspec"
	"github.com/wbrown/janus-queryspec/queryspec/annotations"
	"github.com/wbrown/janus-queryspec/queryspec/eval"
	"github.com/wbrown/janus-queryspec/queryspec/expr"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE "Company" (
		"Id" INTEGER PRIMARY KEY,
		"Name" TEXT NOT NULL,
		"Industry" TEXT NOT NULL,
		"Employees" INTEGER NOT NULL,
		"Active" BOOLEAN NOT NULL
	)`)
	if err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	for _, c := range sampleCompanies() {
		_, err = db.Exec(`INSERT INTO "Company" ("Id", "Name", "Industry", "Employees", "Active") VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Industry, c.Employees, c.Active)
		if err != nil {
			t.Fatalf("Failed to insert row: %v", err)
		}
	}
	return db
}

func scanCompany(rows *sql.Rows) (company, error) {
	var c company
	err := rows.Scan(&c.ID, &c.Name, &c.Industry, &c.Employees, &c.Active)
	return c, err
}

func names(companies []company) string {
	parts := make([]string, len(companies))
	for i, c := range companies {
		parts[i] = c.Name
	}
	return strings.Join(parts, ",")
}

func TestSelectAll(t *testing.T) {
	db := openTestDB(t)
	c := NewCompiler(companySchema(), "Company")

	got, err := c.Select(context.Background(), db, nil, scanCompany)
	assert.NoError(t, err)
	assert.ElementsMatch(t, sampleCompanies(), got)
}

func TestSelectFilterAndOrder(t *testing.T) {
	db := openTestDB(t)
	schema := companySchema()

	spec := queryspec.New(schema)
	assert.NoError(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
		return expr.And(
			expr.Ge(expr.Access(x, "Employees"), expr.Constant(30)),
			expr.Access(x, "Active"),
		)
	}))
	assert.NoError(t, spec.OrderBy(mustSelector(t, schema, "Name")))

	got, err := NewCompiler(schema, "Company").Select(context.Background(), db, spec, scanCompany)
	assert.NoError(t, err)
	assert.Equal(t, "Acme Corp,Blue River,Dover Labs", names(got))
}

// The compiled SELECT and the in-memory pipeline must agree row for row
// over the same specification.
func TestSelectParityWithPipeline(t *testing.T) {
	db := openTestDB(t)
	schema := companySchema()
	compiler := NewCompiler(schema, "Company")

	tests := []struct {
		name    string
		ordered bool
		build   func(t *testing.T, spec *queryspec.Spec[company])
	}{
		{
			name: "filter conjunction",
			build: func(t *testing.T, spec *queryspec.Spec[company]) {
				assert.NoError(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
					return expr.Gt(expr.Access(x, "Employees"), expr.Constant(30))
				}))
				assert.NoError(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
					return expr.Access(x, "Active")
				}))
			},
		},
		{
			name:    "search groups conjoin alternations",
			ordered: true,
			build: func(t *testing.T, spec *queryspec.Spec[company]) {
				name := mustSelector(t, spec.Schema(), "Name")
				industry := mustSelector(t, spec.Schema(), "Industry")
				assert.NoError(t, spec.Search(name, "B%", 0))
				assert.NoError(t, spec.Search(name, "C%", 0))
				assert.NoError(t, spec.Search(industry, "tech", 1))
				assert.NoError(t, spec.OrderBy(name))
			},
		},
		{
			name:    "pattern folds case on both sides",
			ordered: true,
			build: func(t *testing.T, spec *queryspec.Spec[company]) {
				name := mustSelector(t, spec.Schema(), "Name")
				assert.NoError(t, spec.Search(name, "acme%", 0))
				assert.NoError(t, spec.OrderBy(name))
			},
		},
		{
			name: "contains stays case sensitive",
			build: func(t *testing.T, spec *queryspec.Spec[company]) {
				assert.NoError(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
					return expr.Contains(expr.Access(x, "Name"), expr.Constant("corp"))
				}))
			},
		},
		{
			name: "contains matches exact case",
			build: func(t *testing.T, spec *queryspec.Spec[company]) {
				assert.NoError(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
					return expr.Contains(expr.Access(x, "Name"), expr.Constant("Corp"))
				}))
			},
		},
		{
			name:    "ordered window",
			ordered: true,
			build: func(t *testing.T, spec *queryspec.Spec[company]) {
				assert.NoError(t, spec.OrderByDescending(mustSelector(t, spec.Schema(), "Employees")))
				assert.NoError(t, spec.ThenBy(mustSelector(t, spec.Schema(), "Name")))
				assert.NoError(t, spec.SetSkip(1))
				assert.NoError(t, spec.SetTake(2))
			},
		},
		{
			name:    "filters search order and window together",
			ordered: true,
			build: func(t *testing.T, spec *queryspec.Spec[company]) {
				assert.NoError(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
					return expr.Ge(expr.Access(x, "Employees"), expr.Constant(30))
				}))
				name := mustSelector(t, spec.Schema(), "Name")
				assert.NoError(t, spec.Search(name, "%e%", 0))
				assert.NoError(t, spec.OrderBy(name))
				assert.NoError(t, spec.SetTake(2))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := queryspec.New(schema)
			tt.build(t, spec)

			got, err := compiler.Select(context.Background(), db, spec, scanCompany)
			assert.NoError(t, err)

			want, err := eval.NewPipeline[company](nil).EvaluateAll(eval.FromSlice(sampleCompanies()), spec)
			assert.NoError(t, err)

			if tt.ordered {
				assert.Equal(t, names(want), names(got))
			} else {
				assert.ElementsMatch(t, want, got)
			}
		})
	}
}

func TestSelectEvents(t *testing.T) {
	db := openTestDB(t)
	schema := companySchema()

	var events []annotations.Event
	handler := func(e annotations.Event) {
		events = append(events, e)
	}

	spec := queryspec.New(schema)
	assert.NoError(t, spec.SetTake(2))

	got, err := NewCompiler(schema, "Company").SelectWithHandler(context.Background(), db, spec, scanCompany, handler)
	assert.NoError(t, err)
	assert.Len(t, got, 2)

	assert.Len(t, events, 2)
	assert.Equal(t, annotations.SQLCompiled, events[0].Name)
	sql, _ := events[0].Data["sql"].(string)
	assert.Contains(t, sql, "LIMIT ?")
	assert.Equal(t, annotations.SQLExecuted, events[1].Name)
	assert.Equal(t, 2, events[1].Data["row.count"])
}

func TestSelectCompileError(t *testing.T) {
	db := openTestDB(t)
	schema := companySchema()

	spec := queryspec.New(schema)
	p := expr.NewParam("x", schema.Entity())
	assert.NoError(t, spec.Where(expr.Bind(p, p)))

	_, err := NewCompiler(schema, "Company").Select(context.Background(), db, spec, scanCompany)
	assert.ErrorIs(t, err, ErrUnsupported)
}
