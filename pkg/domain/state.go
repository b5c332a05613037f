package domain

// State identifies one kiosk screen.
type State string

const (
	StateHome State = "HOME"

	StateReception                 State = "RECEPTION"
	StateReceptionPatientInput     State = "RECEPTION_PATIENT_INPUT"
	StateReceptionAppointmentCheck State = "RECEPTION_APPOINTMENT_CHECK"
	StateReceptionSymptomSelect    State = "RECEPTION_SYMPTOM_SELECT"
	StateReceptionDepartmentSelect State = "RECEPTION_DEPARTMENT_SELECT"
	StateReceptionConfirm          State = "RECEPTION_CONFIRM"
	StateReceptionComplete         State = "RECEPTION_COMPLETE"

	StatePayment             State = "PAYMENT"
	StatePaymentPatientInput State = "PAYMENT_PATIENT_INPUT"
	StatePaymentAmountCheck  State = "PAYMENT_AMOUNT_CHECK"
	StatePaymentMethodSelect State = "PAYMENT_METHOD_SELECT"
	StatePaymentProcess      State = "PAYMENT_PROCESS"
	StatePaymentComplete     State = "PAYMENT_COMPLETE"

	StateCertificate             State = "CERTIFICATE"
	StateCertificateTypeSelect   State = "CERTIFICATE_TYPE_SELECT"
	StateCertificatePatientInput State = "CERTIFICATE_PATIENT_INPUT"
	StateCertificatePayment      State = "CERTIFICATE_PAYMENT"
	StateCertificatePrint        State = "CERTIFICATE_PRINT"
	StateCertificateComplete     State = "CERTIFICATE_COMPLETE"

	StateAdmin     State = "ADMIN"
	StateAdminAuth State = "ADMIN_AUTH"
	StateAdminMenu State = "ADMIN_MENU"

	// StateError and StateTimeout absorb any flow but can be left via recover/reset
	// or the universal back/cancel triggers.
	StateError   State = "ERROR"
	StateTimeout State = "TIMEOUT"
)

// States lists every declared screen in flow order.
var States = []State{
	StateHome,
	StateReception,
	StateReceptionPatientInput,
	StateReceptionAppointmentCheck,
	StateReceptionSymptomSelect,
	StateReceptionDepartmentSelect,
	StateReceptionConfirm,
	StateReceptionComplete,
	StatePayment,
	StatePaymentPatientInput,
	StatePaymentAmountCheck,
	StatePaymentMethodSelect,
	StatePaymentProcess,
	StatePaymentComplete,
	StateCertificate,
	StateCertificateTypeSelect,
	StateCertificatePatientInput,
	StateCertificatePayment,
	StateCertificatePrint,
	StateCertificateComplete,
	StateAdmin,
	StateAdminAuth,
	StateAdminMenu,
	StateError,
	StateTimeout,
}

// String implements fmt.Stringer.
func (s State) String() string { return string(s) }

// Trigger names an action a caller may request.
type Trigger string

const (
	TriggerSelectReception   Trigger = "select_reception"
	TriggerSelectPayment     Trigger = "select_payment"
	TriggerSelectCertificate Trigger = "select_certificate"
	TriggerAdminMode         Trigger = "admin_mode"

	TriggerStartReception     Trigger = "start_reception"
	TriggerPatientIdentified  Trigger = "patient_identified"
	TriggerHasAppointment     Trigger = "has_appointment"
	TriggerNoAppointment      Trigger = "no_appointment"
	TriggerSymptomsSelected   Trigger = "symptoms_selected"
	TriggerDepartmentSelected Trigger = "department_selected"
	TriggerConfirmReception   Trigger = "confirm_reception"
	TriggerReceptionDone      Trigger = "reception_done"

	TriggerStartPayment    Trigger = "start_payment"
	TriggerPatientVerified Trigger = "patient_verified"
	TriggerAmountConfirmed Trigger = "amount_confirmed"
	TriggerMethodSelected  Trigger = "method_selected"
	TriggerPaymentSuccess  Trigger = "payment_success"
	TriggerPaymentDone     Trigger = "payment_done"

	TriggerStartCertificate    Trigger = "start_certificate"
	TriggerTypeSelected        Trigger = "type_selected"
	TriggerPatientConfirmed    Trigger = "patient_confirmed"
	TriggerCertPaymentComplete Trigger = "cert_payment_complete"
	TriggerPrintComplete       Trigger = "print_complete"
	TriggerCertificateDone     Trigger = "certificate_done"

	TriggerAdminAuthenticated Trigger = "admin_authenticated"
	TriggerAdminLogout        Trigger = "admin_logout"

	TriggerRecover Trigger = "recover"
	TriggerReset   Trigger = "reset"

	// Universal triggers, legal from every non-home screen.
	TriggerGoBack  Trigger = "go_back"
	TriggerCancel  Trigger = "cancel"
	TriggerError   Trigger = "error"
	TriggerTimeout Trigger = "timeout"
)

// String implements fmt.Stringer.
func (t Trigger) String() string { return string(t) }
