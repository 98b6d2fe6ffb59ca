package companieshouse

// Wire shapes for the Companies House REST API. Every field is optional: the
// registry omits anything it does not hold, so projection has to tolerate
// sparse records and skip the unusable ones.

type companySearchResponse struct {
	Items []companyItem `json:"items,omitempty"`
}

type companyItem struct {
	CompanyNumber *string `json:"company_number,omitempty"`
	Title         *string `json:"title,omitempty"`
	CompanyStatus *string `json:"company_status,omitempty"`
}

type officerListResponse struct {
	Items []officerListItem `json:"items,omitempty"`
}

type officerListItem struct {
	Name           *string         `json:"name,omitempty"`
	OfficerRole    *string         `json:"officer_role,omitempty"`
	AppointedOn    *string         `json:"appointed_on,omitempty"`
	ResignedOn     *string         `json:"resigned_on,omitempty"`
	DateOfBirth    *dateOfBirth    `json:"date_of_birth,omitempty"`
	Identification *identification `json:"identification,omitempty"`
	Address        *address        `json:"address,omitempty"`
	Links          *officerLinks   `json:"links,omitempty"`
	PersonNumber   *string         `json:"person_number,omitempty"`
}

type officerLinks struct {
	Officer *officerLink `json:"officer,omitempty"`
}

type officerLink struct {
	Appointments *string `json:"appointments,omitempty"`
}

type shareholderList struct {
	Items []shareholderListItem `json:"items,omitempty"`
}

type shareholderListItem struct {
	Name           *string         `json:"name,omitempty"`
	Kind           *string         `json:"kind,omitempty"`
	Identification *identification `json:"identification,omitempty"`
	Address        *address        `json:"address,omitempty"`
	NotifiedOn     *string         `json:"notified_on,omitempty"`
	CeasedOn       *string         `json:"ceased_on,omitempty"`
	DateOfBirth    *dateOfBirth    `json:"date_of_birth,omitempty"`
}

type appointmentsResponse struct {
	Name        *string           `json:"name,omitempty"`
	DateOfBirth *dateOfBirth      `json:"date_of_birth,omitempty"`
	Items       []appointmentItem `json:"items,omitempty"`
}

type appointmentItem struct {
	AppointedOn *string        `json:"appointed_on,omitempty"`
	ResignedOn  *string        `json:"resigned_on,omitempty"`
	AppointedTo *appointedItem `json:"appointed_to,omitempty"`
}

type appointedItem struct {
	CompanyNumber *string `json:"company_number,omitempty"`
	CompanyName   *string `json:"company_name,omitempty"`
}

type filingHistoryResponse struct {
	Items []filingHistoryItem `json:"items,omitempty"`
}

type filingHistoryItem struct {
	Date        *string `json:"date,omitempty"`
	Category    *string `json:"category,omitempty"`
	Description *string `json:"description,omitempty"`
}

type identification struct {
	RegistrationNumber *string `json:"registration_number,omitempty"`
}

type address struct {
	Country    *string `json:"country,omitempty"`
	PostalCode *string `json:"postal_code,omitempty"`
}

type dateOfBirth struct {
	Day   *int `json:"day,omitempty"`
	Month *int `json:"month,omitempty"`
	Year  *int `json:"year,omitempty"`
}
