package domain

import "time"

// Department identifies a clinic department, e.g. "pediatrics".
type Department string

const (
	DepartmentInternalMedicine Department = "internal_medicine"
	DepartmentSurgery          Department = "surgery"
	DepartmentPediatrics       Department = "pediatrics"
	DepartmentObstetrics       Department = "obstetrics"
	DepartmentOrthopedics      Department = "orthopedics"
	DepartmentDermatology      Department = "dermatology"
	DepartmentPsychiatry       Department = "psychiatry"
	DepartmentEmergency        Department = "emergency"
)

// QueueTicket is handed to a patient on check-in.
type QueueTicket struct {
	Department           Department `json:"department"`
	QueueNumber          int        `json:"queue_number"`
	IssuedAt             time.Time  `json:"issued_at"`
	BusinessDay          string     `json:"business_day"`
	CurrentNumber        int        `json:"current_number"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes"`
	Location             string     `json:"location,omitempty"`
}

// QueueStatus summarises one department queue for the current business day.
type QueueStatus struct {
	Department           Department `json:"department"`
	Current              int        `json:"current"`
	Waiting              int        `json:"waiting"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes"`
	Location             string     `json:"location,omitempty"`
}
