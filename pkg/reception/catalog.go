// Package reception holds the clinic knowledge the check-in flow needs: the department
// catalog, the symptom map used to recommend a department, and the intake collected in
// the session context.
package reception

import (
	"fmt"

	"github.com/aretw0/kiosk/pkg/domain"
)

// Info describes one department.
type Info struct {
	Department domain.Department `json:"department" yaml:"department"`
	Name       string            `json:"name" yaml:"name"`
	Location   string            `json:"location" yaml:"location"`
}

// Catalog is an ordered, read-only set of departments.
type Catalog struct {
	order []domain.Department
	byID  map[domain.Department]Info
}

// NewCatalog builds a catalog, keeping the order of infos.
func NewCatalog(infos ...Info) *Catalog {
	c := &Catalog{byID: make(map[domain.Department]Info, len(infos))}
	for _, in := range infos {
		if _, dup := c.byID[in.Department]; !dup {
			c.order = append(c.order, in.Department)
		}
		c.byID[in.Department] = in
	}
	return c
}

// DefaultCatalog returns the clinic's departments.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Info{domain.DepartmentInternalMedicine, "Internal Medicine", "2F Room 201"},
		Info{domain.DepartmentSurgery, "Surgery", "3F Room 301"},
		Info{domain.DepartmentPediatrics, "Pediatrics", "1F Room 101"},
		Info{domain.DepartmentObstetrics, "Obstetrics", "4F Room 401"},
		Info{domain.DepartmentOrthopedics, "Orthopedics", "2F Room 202"},
		Info{domain.DepartmentDermatology, "Dermatology", "1F Room 102"},
		Info{domain.DepartmentPsychiatry, "Psychiatry", "5F Room 501"},
		Info{domain.DepartmentEmergency, "Emergency", "Emergency Room (Annex)"},
	)
}

// Lookup returns the department info, or an error wrapping domain.ErrUnknownDepartment.
func (c *Catalog) Lookup(d domain.Department) (Info, error) {
	in, ok := c.byID[d]
	if !ok {
		return Info{}, fmt.Errorf("%q: %w", d, domain.ErrUnknownDepartment)
	}
	return in, nil
}

// Location returns where the department is, or "" if unknown.
func (c *Catalog) Location(d domain.Department) string {
	return c.byID[d].Location
}

// All returns every department in catalog order.
func (c *Catalog) All() []Info {
	out := make([]Info, 0, len(c.order))
	for _, d := range c.order {
		out = append(out, c.byID[d])
	}
	return out
}
