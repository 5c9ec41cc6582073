// Package locations provides the district and upazila directory used by the
// registration and donation request forms.
package locations

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/jsonc"
)

//go:embed data/*.jsonc
var dataFS embed.FS

type District struct {
	ID         string `json:"id"`
	DivisionID string `json:"division_id"`
	Name       string `json:"name"`
}

type Upazila struct {
	ID         string `json:"id"`
	DistrictID string `json:"district_id"`
	Name       string `json:"name"`
}

// Directory is an immutable district/upazila lookup
type Directory struct {
	districts []District
	byID      map[string]District
	upazilas  map[string][]Upazila
}

var (
	defaultOnce sync.Once
	defaultDir  *Directory
	defaultErr  error
)

// Default returns the embedded directory
func Default() (*Directory, error) {
	defaultOnce.Do(func() {
		districts, err := dataFS.Open("data/districts.jsonc")
		if err != nil {
			defaultErr = err
			return
		}
		defer districts.Close()

		upazilas, err := dataFS.Open("data/upazilas.jsonc")
		if err != nil {
			defaultErr = err
			return
		}
		defer upazilas.Close()

		defaultDir, defaultErr = Load(districts, upazilas)
	})
	return defaultDir, defaultErr
}

// MustDefault is like Default but panics on a broken embedded dataset
func MustDefault() *Directory {
	dir, err := Default()
	if err != nil {
		panic(err)
	}
	return dir
}

// Load parses district and upazila lists. Both accept JSON with comments and
// trailing commas.
func Load(districts, upazilas io.Reader) (*Directory, error) {
	var ds []District
	if err := decode(districts, &ds); err != nil {
		return nil, fmt.Errorf("parse districts: %w", err)
	}

	var us []Upazila
	if err := decode(upazilas, &us); err != nil {
		return nil, fmt.Errorf("parse upazilas: %w", err)
	}

	dir := &Directory{
		byID:     make(map[string]District, len(ds)),
		upazilas: map[string][]Upazila{},
	}

	for _, d := range ds {
		if d.ID == "" || d.Name == "" {
			return nil, fmt.Errorf("district entry missing id or name: %+v", d)
		}
		if _, dup := dir.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate district id %q", d.ID)
		}
		dir.byID[d.ID] = d
		dir.districts = append(dir.districts, d)
	}

	sort.SliceStable(dir.districts, func(i, j int) bool {
		return dir.districts[i].Name < dir.districts[j].Name
	})

	for _, u := range us {
		if _, ok := dir.byID[u.DistrictID]; !ok {
			return nil, fmt.Errorf("upazila %q references unknown district %q", u.Name, u.DistrictID)
		}
		dir.upazilas[u.DistrictID] = append(dir.upazilas[u.DistrictID], u)
	}

	for id := range dir.upazilas {
		list := dir.upazilas[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}

	return dir, nil
}

func decode(r io.Reader, out any) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonc.ToJSON(raw), out)
}

// Districts returns all districts sorted by name
func (d *Directory) Districts() []District {
	out := make([]District, len(d.districts))
	copy(out, d.districts)
	return out
}

// UpazilasOf returns the upazilas of a district, sorted by name
func (d *Directory) UpazilasOf(districtID string) []Upazila {
	list := d.upazilas[districtID]
	out := make([]Upazila, len(list))
	copy(out, list)
	return out
}

// District finds a district by ID
func (d *Directory) District(id string) (District, bool) {
	district, ok := d.byID[id]
	return district, ok
}

// DistrictName resolves the display name stored with a request, "N/A" for
// unknown IDs.
func (d *Directory) DistrictName(id string) string {
	if district, ok := d.byID[id]; ok {
		return district.Name
	}
	return "N/A"
}

// FindDistrict matches a district by case insensitive name
func (d *Directory) FindDistrict(name string) (District, bool) {
	for _, district := range d.districts {
		if strings.EqualFold(district.Name, strings.TrimSpace(name)) {
			return district, true
		}
	}
	return District{}, false
}

// HasUpazila reports whether name belongs to districtID
func (d *Directory) HasUpazila(districtID, name string) bool {
	for _, u := range d.upazilas[districtID] {
		if u.Name == name {
			return true
		}
	}
	return false
}
