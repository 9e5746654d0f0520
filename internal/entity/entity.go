// Package entity declares the record types served by the API. Each record
// type is turned into a resource.Spec that drives the generic CRUD operations.
package entity

import "medirecords/internal/resource"

var (
	PatientSpec     = resource.SpecFor[Patient]("Patient", "patients")
	DoctorSpec      = resource.SpecFor[Doctor]("Doctor", "doctors")
	DepartmentSpec  = resource.SpecFor[Department]("Department", "departments")
	AppointmentSpec = resource.SpecFor[Appointment]("Appointment", "appointments")
)

// Specs returns every entity spec. Each is mounted at "/" + its collection.
func Specs() []resource.Spec {
	return []resource.Spec{PatientSpec, DoctorSpec, DepartmentSpec, AppointmentSpec}
}

func Collections() []string {
	specs := Specs()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Collection
	}
	return names
}
