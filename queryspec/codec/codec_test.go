package codec

import (
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/wbrown/janus-queryspec/queryspec"
)

type company struct {
	ID        int
	Name      string
	Industry  string
	Employees int
}

func companySchema() *queryspec.Schema[company] {
	s := queryspec.NewSchema[company]("Company")
	s.Field("Id", func(c company) any { return c.ID })
	s.TextField("Name", func(c company) string { return c.Name })
	s.TextField("Industry", func(c company) string { return c.Industry })
	s.Field("Employees", func(c company) any { return c.Employees })
	return s
}

func sampleCriteria(t *testing.T, schema *queryspec.Schema[company]) []queryspec.SearchCriterion[company] {
	t.Helper()
	b := queryspec.NewCriteriaBuilder(schema)
	for _, add := range []struct {
		member  string
		pattern string
		group   int
	}{
		{"Name", "A%", 0},
		{"Name", "B%", 0},
		{"Industry", "%software%", 1},
	} {
		if err := b.AddMember(add.member, add.pattern, add.group); err != nil {
			t.Fatalf("Expected criterion %s to be accepted, got %v", add.member, err)
		}
	}
	return b.Criteria()
}

func TestEncodeCriteria(t *testing.T) {
	schema := companySchema()

	got, err := EncodeCriteria(sampleCriteria(t, schema))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "criteria", got)
}

func TestEncodeCriteriaEmpty(t *testing.T) {
	got, err := EncodeCriteria[company](nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("Expected an empty array, got %s", got)
	}
}

func TestRoundTrip(t *testing.T) {
	schema := companySchema()
	criteria := sampleCriteria(t, schema)

	// An inert entry must survive the trip too.
	criteria = append(criteria, queryspec.SearchCriterion[company]{Pattern: "X%", Group: 2})

	encoded, err := EncodeCriteria(criteria)
	if err != nil {
		t.Fatalf("Expected no error encoding, got %v", err)
	}

	decoded, err := DecodeCriteria(schema, encoded)
	if err != nil {
		t.Fatalf("Expected no error decoding, got %v", err)
	}

	if !Equivalent(criteria, decoded) {
		t.Errorf("Expected an equivalent collection, got %v", decoded)
	}

	// Decoding binds through the registry, so selectors come back interned.
	name, _ := schema.Selector("Name")
	if decoded[0].Selector != name {
		t.Error("Expected the decoded selector to be the schema's interned one")
	}
	if decoded[3].Selector != nil || !decoded[3].Inert() {
		t.Errorf("Expected the inert entry to stay inert, got %v", decoded[3])
	}
}

func TestRoundTripAcrossSchemas(t *testing.T) {
	encoded, err := EncodeCriteria(sampleCriteria(t, companySchema()))
	if err != nil {
		t.Fatalf("Expected no error encoding, got %v", err)
	}

	// A fresh registry for the same entity binds to fresh selector values
	// whose access trees are still semantically equal.
	other := companySchema()
	decoded, err := DecodeCriteria(other, encoded)
	if err != nil {
		t.Fatalf("Expected no error decoding, got %v", err)
	}

	if !Equivalent(sampleCriteria(t, companySchema()), decoded) {
		t.Errorf("Expected an equivalent collection, got %v", decoded)
	}
}

func TestDecodeCriteriaErrors(t *testing.T) {
	schema := companySchema()

	tests := []struct {
		name string
		data string
		want error
	}{
		{"top-level object", `{"member":"Name"}`, ErrFormat},
		{"top-level string", `"criteria"`, ErrFormat},
		{"empty input", ``, ErrFormat},
		{"truncated array", `[{"member":"Name","pattern":"A%","group":0}`, ErrFormat},
		{"trailing data", `[] []`, ErrFormat},
		{"unexpected field", `[{"member":"Name","pattern":"A%","group":0,"weight":2}]`, ErrFormat},
		{"group not an integer", `[{"member":"Name","pattern":"A%","group":"first"}]`, ErrFormat},
		{"unknown member", `[{"member":"Bogus","pattern":"A%","group":0}]`, queryspec.ErrUnknownMember},
		{"non-text member", `[{"member":"Employees","pattern":"A%","group":0}]`, queryspec.ErrNotText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCriteria(schema, []byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeCriteriaInert(t *testing.T) {
	schema := companySchema()

	decoded, err := DecodeCriteria(schema, []byte(`[{"member":"","pattern":"","group":2}]`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(decoded) != 1 || !decoded[0].Inert() || decoded[0].Group != 2 {
		t.Errorf("Expected one inert criterion in group 2, got %v", decoded)
	}
}

func TestDecodeCriteriaMissingFields(t *testing.T) {
	schema := companySchema()

	// Absent fields decode to zero values; an absent member leaves the
	// criterion inert rather than failing the document.
	decoded, err := DecodeCriteria(schema, []byte(`[{"pattern":"A%"},{"member":"Name"}]`))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("Expected 2 criteria, got %d", len(decoded))
	}
	if !decoded[0].Inert() || !decoded[1].Inert() {
		t.Errorf("Expected both partial entries to be inert, got %v", decoded)
	}
}

func TestEquivalent(t *testing.T) {
	schema := companySchema()
	name, _ := schema.Selector("Name")
	industry, _ := schema.Selector("Industry")

	base := []queryspec.SearchCriterion[company]{{Selector: name, Pattern: "A%", Group: 0}}

	tests := []struct {
		name  string
		other []queryspec.SearchCriterion[company]
		want  bool
	}{
		{"same collection", []queryspec.SearchCriterion[company]{{Selector: name, Pattern: "A%", Group: 0}}, true},
		{"different pattern", []queryspec.SearchCriterion[company]{{Selector: name, Pattern: "B%", Group: 0}}, false},
		{"different group", []queryspec.SearchCriterion[company]{{Selector: name, Pattern: "A%", Group: 1}}, false},
		{"different member", []queryspec.SearchCriterion[company]{{Selector: industry, Pattern: "A%", Group: 0}}, false},
		{"nil against bound selector", []queryspec.SearchCriterion[company]{{Pattern: "A%", Group: 0}}, false},
		{"length mismatch", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equivalent(base, tt.other); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
