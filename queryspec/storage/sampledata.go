package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/wbrown/janus-queryspec/queryspec"
)

// Company is the demo entity the sample database and the bundled tools are
// built around.
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Industry  string    `json:"industry"`
	Employees int       `json:"employees"`
	Revenue   float64   `json:"revenue"`
	Active    bool      `json:"active"`
}

// CompanySchema registers the demo entity's queryable members. Id renders
// as its canonical string so it can be searched and ordered like any other
// text member.
func CompanySchema() *queryspec.Schema[Company] {
	s := queryspec.NewSchema[Company]("Company")
	s.TextField("Id", func(c Company) string { return c.ID.String() })
	s.TextField("Name", func(c Company) string { return c.Name })
	s.TextField("Industry", func(c Company) string { return c.Industry })
	s.Field("Employees", func(c Company) any { return c.Employees })
	s.Field("Revenue", func(c Company) any { return c.Revenue })
	s.Field("Active", func(c Company) any { return c.Active })
	return s
}

// CompanyID is the key function for company stores.
func CompanyID(c Company) uuid.UUID { return c.ID }

// SampleConfig specifies what kind of sample database to build
type SampleConfig struct {
	SeedPath   string // YAML seed file; empty uses the built-in seed
	OutputPath string // where to store the database
	Count      int    // synthesized companies appended after the seed
}

// DefaultSampleConfig returns the seed-only sample database.
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{
		OutputPath: "companies.db",
	}
}

// seed file shape:
//
//	companies:
//	  - name: Acme Industrial
//	    industry: manufacturing
//	    employees: 820
//	    revenue: 412.5
//	    active: true
//
// id is optional; absent ids are derived from the name so reseeding is
// idempotent.
type seedFile struct {
	Companies []seedCompany `yaml:"companies"`
}

type seedCompany struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Industry  string  `yaml:"industry"`
	Employees int     `yaml:"employees"`
	Revenue   float64 `yaml:"revenue"`
	Active    bool    `yaml:"active"`
}

// LoadSeed reads companies from a YAML seed document.
func LoadSeed(path string) ([]Company, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(raw []byte) ([]Company, error) {
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	companies := make([]Company, 0, len(file.Companies))
	for i, sc := range file.Companies {
		if sc.Name == "" {
			return nil, fmt.Errorf("parse seed: company %d has no name", i)
		}
		id := DeriveCompanyID(sc.Name)
		if sc.ID != "" {
			parsed, err := uuid.Parse(sc.ID)
			if err != nil {
				return nil, fmt.Errorf("parse seed: company %q id: %w", sc.Name, err)
			}
			id = parsed
		}
		companies = append(companies, Company{
			ID:        id,
			Name:      sc.Name,
			Industry:  sc.Industry,
			Employees: sc.Employees,
			Revenue:   sc.Revenue,
			Active:    sc.Active,
		})
	}
	return companies, nil
}

// DeriveCompanyID maps a company name to a stable UUID.
func DeriveCompanyID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("company:"+name))
}

// BuiltinSeed returns the embedded demo companies.
func BuiltinSeed() []Company {
	seed := []Company{
		{Name: "Acme Industrial", Industry: "manufacturing", Employees: 820, Revenue: 412.5, Active: true},
		{Name: "Blue River Analytics", Industry: "software", Employees: 64, Revenue: 18.9, Active: true},
		{Name: "Crestline Biotech", Industry: "biotech", Employees: 310, Revenue: 87.2, Active: true},
		{Name: "Dover Logistics", Industry: "logistics", Employees: 1250, Revenue: 640.0, Active: true},
		{Name: "Eastgate Energy", Industry: "energy", Employees: 95, Revenue: 233.1, Active: false},
		{Name: "Fairweather Aerospace", Industry: "aerospace", Employees: 2100, Revenue: 1830.4, Active: true},
		{Name: "Granite Retail Group", Industry: "retail", Employees: 5400, Revenue: 2210.7, Active: true},
		{Name: "Harbor Light Software", Industry: "software", Employees: 28, Revenue: 6.3, Active: true},
		{Name: "Ironwood Manufacturing", Industry: "manufacturing", Employees: 460, Revenue: 198.0, Active: false},
		{Name: "Juniper Therapeutics", Industry: "biotech", Employees: 75, Revenue: 12.8, Active: true},
		{Name: "Kestrel Freight", Industry: "logistics", Employees: 330, Revenue: 142.6, Active: true},
		{Name: "Longview Energy", Industry: "energy", Employees: 1580, Revenue: 975.3, Active: true},
	}
	for i := range seed {
		seed[i].ID = DeriveCompanyID(seed[i].Name)
	}
	return seed
}

// SynthesizeCompanies generates n deterministic companies for scale testing.
// No randomness; rebuilding yields the same database.
func SynthesizeCompanies(n int) []Company {
	industries := []string{"software", "manufacturing", "biotech", "logistics", "energy", "retail", "aerospace"}
	companies := make([]Company, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Synth Corp %04d", i+1)
		companies = append(companies, Company{
			ID:        DeriveCompanyID(name),
			Name:      name,
			Industry:  industries[i%len(industries)],
			Employees: 20 + (i*37)%980,
			Revenue:   5.0 + float64((i*53)%400) + float64(i%10)/10.0,
			Active:    i%5 != 0,
		})
	}
	return companies
}

// BuildSampleDatabase creates a pre-populated company database.
// Any existing database at the output path is replaced.
func BuildSampleDatabase(config SampleConfig) (*Store[Company], error) {
	if err := os.RemoveAll(config.OutputPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove existing db: %w", err)
	}
	if dir := filepath.Dir(config.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	companies := BuiltinSeed()
	if config.SeedPath != "" {
		loaded, err := LoadSeed(config.SeedPath)
		if err != nil {
			return nil, err
		}
		companies = loaded
	}
	companies = append(companies, SynthesizeCompanies(config.Count)...)

	store, err := Open(config.OutputPath, CompanySchema(), CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	// Badger commits degrade on oversized transactions; write in batches.
	batchSize := 500
	fmt.Printf("Writing %d companies to %s in batches of %d...\n", len(companies), config.OutputPath, batchSize)

	for batchStart := 0; batchStart < len(companies); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(companies) {
			batchEnd = len(companies)
		}
		if err := store.Put(companies[batchStart:batchEnd]...); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to write batch %d-%d: %w", batchStart, batchEnd, err)
		}
		fmt.Printf("  Written %d/%d companies (%.1f%%)\n", batchEnd, len(companies),
			float64(batchEnd)/float64(len(companies))*100)
	}

	fmt.Printf("Database created: %s\n", config.OutputPath)
	fmt.Printf("   Total companies: %d\n", len(companies))

	return store, nil
}

// OpenSampleDatabase opens a pre-built company database.
func OpenSampleDatabase(path string) (*Store[Company], error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("sample database not found: %s (run build-sampledb first)", path)
	}

	store, err := Open(path, CompanySchema(), CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample database: %w", err)
	}
	return store, nil
}

// SampleDatabaseStats prints statistics about a company database.
func SampleDatabaseStats(store *Store[Company]) error {
	count, err := store.Count()
	if err != nil {
		return fmt.Errorf("failed to count companies: %w", err)
	}

	fmt.Printf("Database statistics:\n")
	fmt.Printf("  Companies: %d\n", count)

	dir := store.db.Opts().Dir
	if dir == "" {
		return nil
	}
	var size int64
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to stat database: %w", err)
	}
	fmt.Printf("  Path: %s\n", dir)
	fmt.Printf("  Size on disk: %.2f MB\n", float64(size)/1024/1024)

	return nil
}
