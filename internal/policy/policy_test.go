package policy

import "testing"

func TestTransitionGating(t *testing.T) {
	cases := []struct {
		name string
		role string
		owns bool
		want bool
	}{
		{"owning doctor", RoleDoctor, true, true},
		{"other doctor", RoleDoctor, false, false},
		{"admin any", RoleAdmin, false, true},
		{"patient", RolePatient, true, false},
	}
	for _, tc := range cases {
		if got := Allowed(tc.role, ActionTransitionStatus, tc.owns); got != tc.want {
			t.Errorf("%s: Allowed=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPrescriptionAttach(t *testing.T) {
	if !Allowed(RoleDoctor, ActionAttachPrescription, true) {
		t.Error("assigned doctor should attach")
	}
	if Allowed(RoleDoctor, ActionAttachPrescription, false) {
		t.Error("other doctor should not attach")
	}
	if Allowed(RoleAdmin, ActionAttachPrescription, false) {
		t.Error("admin should not attach prescriptions")
	}
}

func TestUnknownRoleOrAction(t *testing.T) {
	if Allowed("nurse", ActionBookAppointment, true) {
		t.Error("unknown role must be denied")
	}
	if Allowed(RoleAdmin, Action("bogus"), true) {
		t.Error("unknown action must be denied")
	}
}

func TestBooking(t *testing.T) {
	if !Allowed(RolePatient, ActionBookAppointment, false) {
		t.Error("patient should book")
	}
	if !Allowed(RoleAdmin, ActionBookAppointment, false) {
		t.Error("admin should book")
	}
	if Allowed(RoleDoctor, ActionBookAppointment, false) {
		t.Error("doctor should not book")
	}
}
