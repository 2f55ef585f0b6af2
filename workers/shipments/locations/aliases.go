package locations

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed facilities.yaml
var defaultFacilityAliases []byte

type aliasPlace struct {
	City  string `yaml:"city"`
	State string `yaml:"state"`
}

type aliasDocument struct {
	Areas     map[string]aliasPlace        `yaml:"areas"`
	Sectional map[string]map[string]string `yaml:"sectional"`
}

// FacilityAliasTable maps carrier-internal facility names to real cities.
// It is read-only once built.
type FacilityAliasTable struct {
	areas     map[string]aliasPlace
	sectional map[string]map[string]string
}

// LoadFacilityAliases builds the alias table from the embedded defaults
// followed by any extra YAML documents, later documents overriding earlier
// entries.
func LoadFacilityAliases(extra ...[]byte) (*FacilityAliasTable, error) {
	t := &FacilityAliasTable{
		areas:     make(map[string]aliasPlace),
		sectional: make(map[string]map[string]string),
	}
	docs := append([][]byte{defaultFacilityAliases}, extra...)
	for i, data := range docs {
		if err := t.merge(data); err != nil {
			return nil, fmt.Errorf("facility aliases document %d: %w", i, err)
		}
	}
	return t, nil
}

func (t *FacilityAliasTable) merge(data []byte) error {
	var doc aliasDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	for area, place := range doc.Areas {
		if place.City == "" || place.State == "" {
			return fmt.Errorf("area %q needs both city and state", area)
		}
		t.areas[aliasKey(area)] = aliasPlace{City: place.City, State: aliasKey(place.State)}
	}
	for state, facilities := range doc.Sectional {
		state = aliasKey(state)
		if t.sectional[state] == nil {
			t.sectional[state] = make(map[string]string)
		}
		for name, city := range facilities {
			t.sectional[state][aliasKey(name)] = city
		}
	}
	return nil
}

// Area looks up a full facility area name.
func (t *FacilityAliasTable) Area(area string) (city, state string, ok bool) {
	p, ok := t.areas[aliasKey(area)]
	return p.City, p.State, ok
}

// Sectional looks up a facility name within a state.
func (t *FacilityAliasTable) Sectional(state, name string) (string, bool) {
	city, ok := t.sectional[aliasKey(state)][aliasKey(name)]
	return city, ok
}

func aliasKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
