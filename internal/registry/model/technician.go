package model

import "strconv"

// Technician is a licensed pest-control operator.
//
// Verification status is never stored here: it is derived on every query
// from Active, CertificationExpiry, the current height and the caller.
type Technician struct {
	ID                  uint64    `json:"id"`
	Name                string    `json:"name"`
	LicenseNumber       string    `json:"license_number"`
	Specializations     []string  `json:"specializations"`
	CertificationDate   uint64    `json:"certification_date"`
	CertificationExpiry uint64    `json:"certification_expiry"`
	Active              bool      `json:"active"`
	Account             Principal `json:"account"`
}

// RegisterTechnicianRequest is the payload for registering a technician.
type RegisterTechnicianRequest struct {
	Name                string    `json:"name"`
	LicenseNumber       string    `json:"license_number"`
	CertificationExpiry uint64    `json:"certification_expiry"`
	Specializations     []string  `json:"specializations"`
	Account             Principal `json:"account"                binding:"required"`
}

// SubjectURI returns the ledger subject for this technician, e.g. "technician/1".
func (t *Technician) SubjectURI() string {
	return TechnicianSubject(t.ID)
}

// ValidAt reports whether the certification is still in force at height.
// Expiry at exactly height is already invalid.
func (t *Technician) ValidAt(height uint64) bool {
	return t.CertificationExpiry > height
}

// FacilitySubject formats the ledger subject for a facility id.
func FacilitySubject(id uint64) string {
	return "facility/" + strconv.FormatUint(id, 10)
}

// TechnicianSubject formats the ledger subject for a technician id.
func TechnicianSubject(id uint64) string {
	return "technician/" + strconv.FormatUint(id, 10)
}
