package client

// FacilityDetails holds the mutable fields of a facility.
type FacilityDetails struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	SquareFootage uint64 `json:"square_footage"`
	FacilityType  string `json:"facility_type"`
	ContactName   string `json:"contact_name"`
	ContactInfo   string `json:"contact_info"`
}

// Facility is a registered facility as returned by the registry.
type Facility struct {
	ID uint64 `json:"id"`
	FacilityDetails
	RegistrationDate uint64 `json:"registration_date"`
	Owner            string `json:"owner"`
}

// RegisterTechnicianRequest is the payload for RegisterTechnician.
type RegisterTechnicianRequest struct {
	Name                string   `json:"name"`
	LicenseNumber       string   `json:"license_number"`
	CertificationExpiry uint64   `json:"certification_expiry"`
	Specializations     []string `json:"specializations"`
	Account             string   `json:"account"`
}

// Technician is a registered technician as returned by the registry.
type Technician struct {
	ID                  uint64   `json:"id"`
	Name                string   `json:"name"`
	LicenseNumber       string   `json:"license_number"`
	Specializations     []string `json:"specializations"`
	CertificationDate   uint64   `json:"certification_date"`
	CertificationExpiry uint64   `json:"certification_expiry"`
	Active              bool     `json:"active"`
	Account             string   `json:"account"`
}

// LedgerOverview summarises the audit ledger.
type LedgerOverview struct {
	Entries int    `json:"entries"`
	Root    string `json:"root"`
}

// LedgerVerification is the result of a full chain walk.
type LedgerVerification struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
