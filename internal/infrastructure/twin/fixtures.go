package twin

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixtures is the YAML seed format: records keyed by remote type name, each
// record keyed by remote field name.
//
//	records:
//	  Debtor:
//	    - Number: 42
//	      Name: Bob
//	      DebtorGroupHandle: {Number: 1}
type Fixtures struct {
	Records map[string][]Record `yaml:"records"`
}

// ReadFixtures decodes fixtures from r
func ReadFixtures(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("twin: invalid fixtures: %w", err)
	}
	for name := range f.Records {
		if _, ok := KindOf(name); !ok {
			return nil, fmt.Errorf("twin: fixtures name unknown type %q", name)
		}
	}
	return &f, nil
}

// LoadFixtures reads the YAML file at path and seeds the store with it
func (s *Store) LoadFixtures(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("twin: open fixtures: %w", err)
	}
	defer file.Close()

	f, err := ReadFixtures(file)
	if err != nil {
		return err
	}
	return s.Seed(f.Records)
}
