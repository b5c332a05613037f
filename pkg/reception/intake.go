package reception

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/kiosk/pkg/domain"
)

// Context keys written by the reception screens.
const (
	KeyPatientID     = "patient_id"
	KeyAppointmentID = "appointment_id"
	KeySymptoms      = "symptoms"
	KeyDepartment    = "department"
	KeyQueueTicket   = "queue_ticket"
)

// Intake is what the reception flow has collected by the confirm screen.
type Intake struct {
	PatientID     string            `mapstructure:"patient_id"`
	AppointmentID string            `mapstructure:"appointment_id"`
	Symptoms      []string          `mapstructure:"symptoms"`
	Department    domain.Department `mapstructure:"department"`
}

// DecodeIntake reads the intake out of a session context. Unrelated keys are ignored
// and scalar values are coerced where unambiguous (a single symptom string becomes a
// one-element list).
func DecodeIntake(ctx map[string]any) (Intake, error) {
	var in Intake
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &in,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Intake{}, err
	}
	if err := dec.Decode(ctx); err != nil {
		return Intake{}, fmt.Errorf("failed to decode reception intake: %w", err)
	}
	return in, nil
}

// Desk resolves which department a check-in goes to.
type Desk struct {
	Catalog     *Catalog
	Recommender *Recommender
}

// NewDesk returns a desk over the default catalog and symptom list.
func NewDesk() *Desk {
	return &Desk{
		Catalog:     DefaultCatalog(),
		Recommender: NewRecommender(DefaultSymptoms),
	}
}

// Resolve picks the department for in: an explicit choice wins, otherwise one is
// recommended from the symptoms. With neither, it returns domain.ErrMissingDepartment.
func (d *Desk) Resolve(in Intake) (domain.Department, error) {
	switch {
	case in.Department != "":
		if _, err := d.Catalog.Lookup(in.Department); err != nil {
			return "", err
		}
		return in.Department, nil
	case len(in.Symptoms) > 0:
		return d.Recommender.Recommend(in.Symptoms), nil
	}
	return "", domain.ErrMissingDepartment
}
