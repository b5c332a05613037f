package flow

import (
	"sync"

	"github.com/aretw0/kiosk/pkg/domain"
)

// KioskBuilder returns a builder pre-loaded with the kiosk screen graph.
func KioskBuilder() *Builder {
	b := NewBuilder(domain.StateHome, domain.States...)

	// Home
	b.Add(domain.TriggerSelectReception, domain.StateHome, domain.StateReception).
		Add(domain.TriggerSelectPayment, domain.StateHome, domain.StatePayment).
		Add(domain.TriggerSelectCertificate, domain.StateHome, domain.StateCertificate).
		Add(domain.TriggerAdminMode, domain.StateHome, domain.StateAdminAuth)

	// Reception
	b.Add(domain.TriggerStartReception, domain.StateReception, domain.StateReceptionPatientInput).
		Add(domain.TriggerPatientIdentified, domain.StateReceptionPatientInput, domain.StateReceptionAppointmentCheck).
		Add(domain.TriggerHasAppointment, domain.StateReceptionAppointmentCheck, domain.StateReceptionConfirm).
		Add(domain.TriggerNoAppointment, domain.StateReceptionAppointmentCheck, domain.StateReceptionSymptomSelect).
		Add(domain.TriggerSymptomsSelected, domain.StateReceptionSymptomSelect, domain.StateReceptionDepartmentSelect).
		Add(domain.TriggerDepartmentSelected, domain.StateReceptionDepartmentSelect, domain.StateReceptionConfirm).
		Add(domain.TriggerConfirmReception, domain.StateReceptionConfirm, domain.StateReceptionComplete).
		Add(domain.TriggerReceptionDone, domain.StateReceptionComplete, domain.StateHome)

	// Payment
	b.Add(domain.TriggerStartPayment, domain.StatePayment, domain.StatePaymentPatientInput).
		Add(domain.TriggerPatientVerified, domain.StatePaymentPatientInput, domain.StatePaymentAmountCheck).
		Add(domain.TriggerAmountConfirmed, domain.StatePaymentAmountCheck, domain.StatePaymentMethodSelect).
		Add(domain.TriggerMethodSelected, domain.StatePaymentMethodSelect, domain.StatePaymentProcess).
		Add(domain.TriggerPaymentSuccess, domain.StatePaymentProcess, domain.StatePaymentComplete).
		Add(domain.TriggerPaymentDone, domain.StatePaymentComplete, domain.StateHome)

	// Certificate
	b.Add(domain.TriggerStartCertificate, domain.StateCertificate, domain.StateCertificateTypeSelect).
		Add(domain.TriggerTypeSelected, domain.StateCertificateTypeSelect, domain.StateCertificatePatientInput).
		Add(domain.TriggerPatientConfirmed, domain.StateCertificatePatientInput, domain.StateCertificatePayment).
		Add(domain.TriggerCertPaymentComplete, domain.StateCertificatePayment, domain.StateCertificatePrint).
		Add(domain.TriggerPrintComplete, domain.StateCertificatePrint, domain.StateCertificateComplete).
		Add(domain.TriggerCertificateDone, domain.StateCertificateComplete, domain.StateHome)

	// Admin
	b.Add(domain.TriggerAdminAuthenticated, domain.StateAdminAuth, domain.StateAdminMenu).
		Add(domain.TriggerAdminLogout, domain.StateAdminMenu, domain.StateHome)

	// Recovery
	b.Add(domain.TriggerRecover, domain.StateError, domain.StateHome).
		Add(domain.TriggerReset, domain.StateTimeout, domain.StateHome)

	b.Universal(domain.TriggerGoBack, domain.StateHome).
		Universal(domain.TriggerCancel, domain.StateHome).
		Universal(domain.TriggerError, domain.StateError).
		Universal(domain.TriggerTimeout, domain.StateTimeout)

	return b
}

var kiosk = sync.OnceValue(func() *Table {
	t, err := KioskBuilder().Build()
	if err != nil {
		panic(err)
	}
	return t
})

// Kiosk returns the shared kiosk screen graph.
func Kiosk() *Table {
	return kiosk()
}
