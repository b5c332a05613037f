package reception

import "github.com/aretw0/kiosk/pkg/domain"

// Symptom is a selectable complaint and the departments that treat it, best match first.
type Symptom struct {
	Code        string              `json:"code" yaml:"code"`
	Label       string              `json:"label" yaml:"label"`
	Departments []domain.Department `json:"departments" yaml:"departments"`
}

// DefaultSymptoms is the symptom list shown on the symptom selection screen.
var DefaultSymptoms = []Symptom{
	{"fever", "발열", []domain.Department{domain.DepartmentInternalMedicine, domain.DepartmentPediatrics}},
	{"cough", "기침", []domain.Department{domain.DepartmentInternalMedicine, domain.DepartmentPediatrics}},
	{"headache", "두통", []domain.Department{domain.DepartmentInternalMedicine, domain.DepartmentPsychiatry}},
	{"abdominal_pain", "복통", []domain.Department{domain.DepartmentInternalMedicine, domain.DepartmentSurgery}},
	{"joint_pain", "관절통", []domain.Department{domain.DepartmentOrthopedics, domain.DepartmentInternalMedicine}},
	{"skin_rash", "피부발진", []domain.Department{domain.DepartmentDermatology}},
	{"depression", "우울감", []domain.Department{domain.DepartmentPsychiatry}},
	{"pregnancy", "임신", []domain.Department{domain.DepartmentObstetrics}},
	{"fracture", "골절", []domain.Department{domain.DepartmentOrthopedics, domain.DepartmentEmergency}},
	{"breathing_difficulty", "호흡곤란", []domain.Department{domain.DepartmentEmergency, domain.DepartmentInternalMedicine}},
}

// Recommender picks a department from selected symptoms.
type Recommender struct {
	symptoms map[string]Symptom
	list     []Symptom
	fallback domain.Department
}

// NewRecommender indexes symptoms by code and by label. Unmatched selections fall back
// to internal medicine.
func NewRecommender(symptoms []Symptom) *Recommender {
	r := &Recommender{
		symptoms: make(map[string]Symptom, len(symptoms)*2),
		list:     symptoms,
		fallback: domain.DepartmentInternalMedicine,
	}
	for _, s := range symptoms {
		r.symptoms[s.Code] = s
		r.symptoms[s.Label] = s
	}
	return r
}

// Symptoms returns the known symptoms in display order.
func (r *Recommender) Symptoms() []Symptom {
	return append([]Symptom(nil), r.list...)
}

// Recommend scores each department by how many selected symptoms it treats. Ties go to
// the department that was scored first.
func (r *Recommender) Recommend(selected []string) domain.Department {
	scores := make(map[domain.Department]int)
	var order []domain.Department
	for _, code := range selected {
		s, ok := r.symptoms[code]
		if !ok {
			continue
		}
		for _, d := range s.Departments {
			if _, seen := scores[d]; !seen {
				order = append(order, d)
			}
			scores[d]++
		}
	}

	best, bestScore := r.fallback, 0
	for _, d := range order {
		if scores[d] > bestScore {
			best, bestScore = d, scores[d]
		}
	}
	return best
}
