// Package policy maps (role, action, ownership) to an allow/deny decision.
// Handlers consult it instead of encoding role checks inline, so the
// transition rules stay testable in isolation.
package policy

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

type Action string

const (
	ActionBookAppointment    Action = "appointment:book"
	ActionTransitionStatus   Action = "appointment:transition"
	ActionAttachPrescription Action = "prescription:attach"
	ActionViewPrescription   Action = "prescription:view"
	ActionManageDoctors      Action = "doctor:manage"
	ActionManageUsers        Action = "user:manage"
)

type scope int

const (
	scopeOwn scope = iota + 1 // allowed only on resources the actor owns
	scopeAny                  // allowed on any resource
)

// Admins may book on a patient's behalf; prescriptions are strictly the
// assigned doctor's to write.
var rules = map[Action]map[string]scope{
	ActionBookAppointment:    {RolePatient: scopeAny, RoleAdmin: scopeAny},
	ActionTransitionStatus:   {RoleDoctor: scopeOwn, RoleAdmin: scopeAny},
	ActionAttachPrescription: {RoleDoctor: scopeOwn},
	ActionViewPrescription:   {RolePatient: scopeOwn, RoleDoctor: scopeOwn, RoleAdmin: scopeAny},
	ActionManageDoctors:      {RoleAdmin: scopeAny},
	ActionManageUsers:        {RoleAdmin: scopeAny},
}

// Allowed reports whether role may perform action. owns indicates whether
// the actor owns the target resource; own-scoped grants deny otherwise.
func Allowed(role string, action Action, owns bool) bool {
	switch rules[action][role] {
	case scopeAny:
		return true
	case scopeOwn:
		return owns
	}
	return false
}
