package eval

import (
	"errors"
	"strings"
	"testing"

	"github.com/wbrown/janus-queryspec/queryspec"
	"github.com/wbrown/janus-queryspec/queryspec/expr"
)

type company struct {
	ID        int
	Name      string
	Industry  string
	Employees int
	Active    bool
}

func companySchema() *queryspec.Schema[company] {
	s := queryspec.NewSchema[company]("Company")
	s.Field("Id", func(c company) any { return c.ID })
	s.TextField("Name", func(c company) string { return c.Name })
	s.TextField("Industry", func(c company) string { return c.Industry })
	s.Field("Employees", func(c company) any { return c.Employees })
	s.Field("Active", func(c company) any { return c.Active })
	return s
}

func sampleCompanies() []company {
	return []company{
		{ID: 1, Name: "Acme Corp", Industry: "manufacturing", Employees: 120, Active: true},
		{ID: 2, Name: "Blue River", Industry: "tech", Employees: 30, Active: true},
		{ID: 3, Name: "Crestline", Industry: "tech", Employees: 450, Active: false},
		{ID: 4, Name: "Dover Labs", Industry: "biotech", Employees: 30, Active: true},
	}
}

func allStages() []Stage[company] {
	return []Stage[company]{
		FilterEvaluator[company]{},
		SearchEvaluator[company]{},
		OrderEvaluator[company]{},
		PaginateEvaluator[company]{},
		ReadModeEvaluator[company]{},
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func mustMaterialize(t *testing.T, seq Sequence[company]) []company {
	t.Helper()
	got, err := Materialize(seq)
	if err != nil {
		t.Fatalf("Expected no error draining sequence, got %v", err)
	}
	return got
}

func names(companies []company) string {
	parts := make([]string, len(companies))
	for i, c := range companies {
		parts[i] = c.Name
	}
	return strings.Join(parts, ",")
}

func TestStagesNilSpec(t *testing.T) {
	for _, stage := range allStages() {
		t.Run(stage.Name(), func(t *testing.T) {
			out, err := stage.Evaluate(FromSlice(sampleCompanies()), nil)
			mustOK(t, err)

			got := mustMaterialize(t, out)
			want := sampleCompanies()
			if len(got) != len(want) {
				t.Fatalf("Expected %d elements, got %d", len(want), len(got))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("Expected %v at %d, got %v", want[i], i, got[i])
				}
			}
		})
	}
}

func TestStagesNilSequence(t *testing.T) {
	spec := queryspec.New(companySchema())
	for _, stage := range allStages() {
		t.Run(stage.Name(), func(t *testing.T) {
			_, err := stage.Evaluate(nil, spec)
			if !errors.Is(err, ErrNilSequence) {
				t.Fatalf("Expected ErrNilSequence, got %v", err)
			}
			if !strings.Contains(err.Error(), stage.Name()) {
				t.Errorf("Expected error to name stage %s, got %q", stage.Name(), err)
			}
		})
	}
}

func TestFilterEvaluator(t *testing.T) {
	schema := companySchema()

	t.Run("conjoined filters", func(t *testing.T) {
		data := []company{
			{ID: 1, Name: "Company 1"},
			{ID: 2, Name: "Company 2"},
		}
		spec := queryspec.New(schema)
		mustOK(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
			return expr.Eq(expr.Access(x, "Id"), expr.Constant(2))
		}))
		mustOK(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
			return expr.Contains(expr.Access(x, "Name"), expr.Constant("Company"))
		}))

		out, err := FilterEvaluator[company]{}.Evaluate(FromSlice(data), spec)
		mustOK(t, err)

		got := mustMaterialize(t, out)
		if len(got) != 1 || got[0].ID != 2 || got[0].Name != "Company 2" {
			t.Errorf("Expected only Company 2, got %v", got)
		}
	})

	t.Run("no filters passes through", func(t *testing.T) {
		out, err := FilterEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), queryspec.New(schema))
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Acme Corp,Blue River,Crestline,Dover Labs" {
			t.Errorf("Expected every company, got %s", got)
		}
	})

	t.Run("bare boolean member", func(t *testing.T) {
		spec := queryspec.New(schema)
		mustOK(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
			return expr.Access(x, "Active")
		}))

		out, err := FilterEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), spec)
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Acme Corp,Blue River,Dover Labs" {
			t.Errorf("Expected the active companies, got %s", got)
		}
	})

	t.Run("predicate failure surfaces", func(t *testing.T) {
		spec := queryspec.New(schema)
		mustOK(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
			return expr.Eq(expr.Access(x, "Bogus"), expr.Constant(1))
		}))

		out, err := FilterEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), spec)
		mustOK(t, err)

		if _, err := Materialize(out); !errors.Is(err, queryspec.ErrUnknownMember) {
			t.Errorf("Expected ErrUnknownMember, got %v", err)
		}
	})
}

func TestSearchEvaluator(t *testing.T) {
	schema := companySchema()
	name, _ := schema.Selector("Name")
	industry, _ := schema.Selector("Industry")

	t.Run("patterns in one group alternate", func(t *testing.T) {
		data := []company{
			{ID: 1, Name: "AAA"},
			{ID: 2, Name: "BBB"},
			{ID: 3, Name: "CCC"},
		}
		spec := queryspec.New(schema)
		mustOK(t, spec.Search(name, "A%", 0))
		mustOK(t, spec.Search(name, "B%", 0))

		out, err := SearchEvaluator[company]{}.Evaluate(FromSlice(data), spec)
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "AAA,BBB" {
			t.Errorf("Expected AAA,BBB, got %s", got)
		}
	})

	t.Run("distinct groups conjoin", func(t *testing.T) {
		spec := queryspec.New(schema)
		mustOK(t, spec.Search(industry, "tech", 0))
		mustOK(t, spec.Search(industry, "biotech", 0))
		mustOK(t, spec.Search(name, "C%", 1))

		out, err := SearchEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), spec)
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Crestline" {
			t.Errorf("Expected only Crestline, got %s", got)
		}
	})

	t.Run("pattern folds case", func(t *testing.T) {
		spec := queryspec.New(schema)
		mustOK(t, spec.Search(name, "acme%", 0))

		out, err := SearchEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), spec)
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Acme Corp" {
			t.Errorf("Expected Acme Corp, got %s", got)
		}
	})

	t.Run("inert criteria pass through", func(t *testing.T) {
		spec := queryspec.New(schema)
		mustOK(t, spec.Criteria().AddCriterion(queryspec.SearchCriterion[company]{Pattern: "A%"}))
		mustOK(t, spec.Criteria().AddCriterion(queryspec.SearchCriterion[company]{Selector: name, Pattern: ""}))

		out, err := SearchEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), spec)
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Acme Corp,Blue River,Crestline,Dover Labs" {
			t.Errorf("Expected every company, got %s", got)
		}
	})

	t.Run("no criteria passes through", func(t *testing.T) {
		out, err := SearchEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), queryspec.New(schema))
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Acme Corp,Blue River,Crestline,Dover Labs" {
			t.Errorf("Expected every company, got %s", got)
		}
	})
}

func TestOrderEvaluator(t *testing.T) {
	schema := companySchema()
	name, _ := schema.Selector("Name")
	industry, _ := schema.Selector("Industry")
	employees, _ := schema.Selector("Employees")

	t.Run("primary ascending", func(t *testing.T) {
		spec := queryspec.New(schema)
		mustOK(t, spec.OrderBy(name))

		data := []company{
			{ID: 3, Name: "Crestline"},
			{ID: 1, Name: "Acme Corp"},
			{ID: 2, Name: "Blue River"},
		}
		out, err := OrderEvaluator[company]{}.Evaluate(FromSlice(data), spec)
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Acme Corp,Blue River,Crestline" {
			t.Errorf("Expected alphabetical order, got %s", got)
		}
	})

	t.Run("primary descending keeps ties in source order", func(t *testing.T) {
		spec := queryspec.New(schema)
		mustOK(t, spec.OrderByDescending(employees))

		out, err := OrderEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), spec)
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Crestline,Acme Corp,Blue River,Dover Labs" {
			t.Errorf("Expected 450,120,30,30 with ties in source order, got %s", got)
		}
	})

	t.Run("subordinate key breaks ties", func(t *testing.T) {
		spec := queryspec.New(schema)
		mustOK(t, spec.OrderBy(employees))
		mustOK(t, spec.ThenByDescending(name))

		out, err := OrderEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), spec)
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Dover Labs,Blue River,Acme Corp,Crestline" {
			t.Errorf("Expected employee count then reverse name, got %s", got)
		}
	})

	t.Run("stable within equal keys", func(t *testing.T) {
		spec := queryspec.New(schema)
		mustOK(t, spec.OrderBy(industry))

		out, err := OrderEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), spec)
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Dover Labs,Acme Corp,Blue River,Crestline" {
			t.Errorf("Expected industry groups with ties in source order, got %s", got)
		}
	})

	t.Run("empty chain passes through", func(t *testing.T) {
		out, err := OrderEvaluator[company]{}.Evaluate(FromSlice(sampleCompanies()), queryspec.New(schema))
		mustOK(t, err)

		if got := names(mustMaterialize(t, out)); got != "Acme Corp,Blue River,Crestline,Dover Labs" {
			t.Errorf("Expected source order, got %s", got)
		}
	})
}

func TestPaginateEvaluator(t *testing.T) {
	schema := companySchema()

	paginate := func(t *testing.T, data []company, skip, take int, setSkip, setTake bool) []company {
		t.Helper()
		spec := queryspec.New(schema)
		if setSkip {
			mustOK(t, spec.SetSkip(skip))
		}
		if setTake {
			mustOK(t, spec.SetTake(take))
		}
		out, err := PaginateEvaluator[company]{}.Evaluate(FromSlice(data), spec)
		mustOK(t, err)
		return mustMaterialize(t, out)
	}

	t.Run("window past the end", func(t *testing.T) {
		data := sampleCompanies()[:3]
		got := paginate(t, data, 10, 5, true, true)
		if len(got) != 0 {
			t.Errorf("Expected an empty result, got %v", got)
		}
	})

	t.Run("take clamps to available", func(t *testing.T) {
		data := sampleCompanies()[:2]
		got := paginate(t, data, 1, 100, true, true)
		if names(got) != "Blue River" {
			t.Errorf("Expected only the second element, got %s", names(got))
		}
	})

	t.Run("take zero yields nothing", func(t *testing.T) {
		got := paginate(t, sampleCompanies(), 0, 0, false, true)
		if len(got) != 0 {
			t.Errorf("Expected an empty result, got %v", got)
		}
	})

	t.Run("skip zero starts at the top", func(t *testing.T) {
		got := paginate(t, sampleCompanies(), 0, 0, true, false)
		if names(got) != "Acme Corp,Blue River,Crestline,Dover Labs" {
			t.Errorf("Expected every company, got %s", names(got))
		}
	})

	t.Run("skip only", func(t *testing.T) {
		got := paginate(t, sampleCompanies(), 2, 0, true, false)
		if names(got) != "Crestline,Dover Labs" {
			t.Errorf("Expected the last two, got %s", names(got))
		}
	})

	t.Run("take only", func(t *testing.T) {
		got := paginate(t, sampleCompanies(), 0, 2, false, true)
		if names(got) != "Acme Corp,Blue River" {
			t.Errorf("Expected the first two, got %s", names(got))
		}
	})

	t.Run("absent bounds pass through", func(t *testing.T) {
		got := paginate(t, sampleCompanies(), 0, 0, false, false)
		if names(got) != "Acme Corp,Blue River,Crestline,Dover Labs" {
			t.Errorf("Expected every company, got %s", names(got))
		}
	})
}

func TestReadModeEvaluator(t *testing.T) {
	spec := queryspec.New(companySchema())
	spec.SetReadOnly(true)

	seq := FromSlice(sampleCompanies())
	out, err := ReadModeEvaluator[company]{}.Evaluate(seq, spec)
	mustOK(t, err)

	if out != seq {
		t.Error("Expected the sequence to pass through untouched")
	}
}

type countingSequence struct {
	items  []company
	passes int
}

func (s *countingSequence) Iterator() Iterator[company] {
	s.passes++
	return &sliceIterator[company]{items: s.items, pos: -1}
}

func TestStagesAreLazy(t *testing.T) {
	src := &countingSequence{items: sampleCompanies()}
	spec := queryspec.New(companySchema())
	mustOK(t, spec.WhereFunc(func(x *expr.Param) expr.Node {
		return expr.Access(x, "Active")
	}))

	out, err := FilterEvaluator[company]{}.Evaluate(src, spec)
	mustOK(t, err)

	if src.passes != 0 {
		t.Fatalf("Expected no pass over the source before draining, got %d", src.passes)
	}

	mustMaterialize(t, out)
	if src.passes != 1 {
		t.Errorf("Expected one pass after draining, got %d", src.passes)
	}

	mustMaterialize(t, out)
	if src.passes != 2 {
		t.Errorf("Expected each drain to start a fresh pass, got %d", src.passes)
	}
}
