package model

// Principal is an authenticated caller identity supplied by the host.
type Principal string

// FacilityDetails holds the mutable, uninterpreted fields of a facility.
// It is the payload of both registration and update.
type FacilityDetails struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	SquareFootage uint64 `json:"square_footage"`
	FacilityType  string `json:"facility_type"`
	ContactName   string `json:"contact_name"`
	ContactInfo   string `json:"contact_info"`
}

// Facility is a registered physical site.
type Facility struct {
	ID uint64 `json:"id"`
	FacilityDetails
	// RegistrationDate is the logical height at creation. Never rewritten.
	RegistrationDate uint64    `json:"registration_date"`
	Owner            Principal `json:"owner"`
}

// SubjectURI returns the ledger subject for this facility, e.g. "facility/1".
func (f *Facility) SubjectURI() string {
	return FacilitySubject(f.ID)
}

// Apply overwrites the mutable fields; ID, RegistrationDate and Owner are untouched.
func (f *Facility) Apply(d FacilityDetails) {
	f.FacilityDetails = d
}
