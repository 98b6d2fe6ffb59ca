package companieshouse

import (
	"fmt"
	"strings"
	"time"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// padRegistryNumber normalises company numbers to the canonical width; the
// search and relation endpoints return unpadded numbers for old
// registrations.
func padRegistryNumber(n string) string {
	return domain.PadRegistryNumber(n)
}

// pscEntityKinds maps a PSC record's kind to the graph node type. Legal
// persons and super-secure PSCs carry no corporate identity of their own and
// are treated as individuals; anything unrecognised defaults to company.
var pscEntityKinds = map[string]domain.EntityKind{
	"individual-person-with-significant-control":       domain.EntityIndividual,
	"corporate-entity-person-with-significant-control": domain.EntityCompany,
	"legal-person-with-significant-control":            domain.EntityIndividual,
	"super-secure-person-with-significant-control":     domain.EntityIndividual,
	"individual-beneficial-owner":                      domain.EntityIndividual,
	"corporate-entity-beneficial-owner":                domain.EntityCompany,
	"legal-person-beneficial-owner":                    domain.EntityIndividual,
	"super-secure-beneficial-owner":                    domain.EntityCompany,
}

func entityKindFromPSC(kind *string) domain.EntityKind {
	if kind == nil {
		return domain.EntityCompany
	}
	if k, ok := pscEntityKinds[*kind]; ok {
		return k
	}
	return domain.EntityCompany
}

// entityKindFromOfficerRole classifies an officer by role: the registry names
// corporate officers with roles like "corporate-director" and
// "corporate-secretary".
func entityKindFromOfficerRole(role *string) domain.EntityKind {
	if role != nil && strings.Contains(*role, "corporate") {
		return domain.EntityCompany
	}
	return domain.EntityIndividual
}

// officerIDFromLinks extracts the opaque officer id from the appointments
// link, shaped /officers/{id}/appointments.
func officerIDFromLinks(links *officerLinks) *string {
	if links == nil || links.Officer == nil || links.Officer.Appointments == nil {
		return nil
	}
	parts := strings.Split(strings.Trim(*links.Officer.Appointments, "/"), "/")
	if len(parts) != 3 || parts[0] != "officers" || parts[2] != "appointments" || parts[1] == "" {
		return nil
	}
	return &parts[1]
}

// dateOfOriginFromDOB builds a YYYY-MM-DD date of origin from the partial
// date of birth the registry discloses. Only month and year are published,
// so the day is pinned to 01.
func dateOfOriginFromDOB(dob *dateOfBirth) *string {
	if dob == nil || dob.Month == nil || dob.Year == nil {
		return nil
	}
	s := fmt.Sprintf("%04d-%02d-01", *dob.Year, *dob.Month)
	return &s
}

func parseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &t
}

func addressFields(a *address) (country, postalCode *string) {
	if a == nil {
		return nil, nil
	}
	return a.Country, a.PostalCode
}

// shareholderEntityRelation projects one PSC record. Records without a
// registration number cannot be joined into the graph and are dropped.
func shareholderEntityRelation(item shareholderListItem) (domain.EntityRelation, bool) {
	if item.Identification == nil || item.Identification.RegistrationNumber == nil {
		return domain.EntityRelation{}, false
	}
	country, postalCode := addressFields(item.Address)
	return domain.EntityRelation{
		Entity: domain.Entity{
			RegistryNumber: padRegistryNumber(*item.Identification.RegistrationNumber),
			Name:           item.Name,
			Kind:           entityKindFromPSC(item.Kind),
			Country:        country,
			PostalCode:     postalCode,
			DateOfOrigin:   dateOfOriginFromDOB(item.DateOfBirth),
		},
		StartedOn: parseDate(item.NotifiedOn),
		EndedOn:   parseDate(item.CeasedOn),
	}, true
}

// officerEntityRelation projects one officer record. Individuals keep the
// officer id so their appointments can be expanded later.
func officerEntityRelation(item officerListItem) (domain.EntityRelation, bool) {
	if item.Identification == nil || item.Identification.RegistrationNumber == nil {
		return domain.EntityRelation{}, false
	}
	country, postalCode := addressFields(item.Address)
	return domain.EntityRelation{
		Entity: domain.Entity{
			RegistryNumber: padRegistryNumber(*item.Identification.RegistrationNumber),
			Name:           item.Name,
			Kind:           entityKindFromOfficerRole(item.OfficerRole),
			Country:        country,
			PostalCode:     postalCode,
			DateOfOrigin:   dateOfOriginFromDOB(item.DateOfBirth),
			OfficerID:      officerIDFromLinks(item.Links),
		},
		StartedOn: parseDate(item.AppointedOn),
		EndedOn:   parseDate(item.ResignedOn),
	}, true
}

// appointmentEntityRelation projects one appointment to the company the
// officer is appointed to.
func appointmentEntityRelation(item appointmentItem) (domain.EntityRelation, bool) {
	if item.AppointedTo == nil || item.AppointedTo.CompanyNumber == nil {
		return domain.EntityRelation{}, false
	}
	return domain.EntityRelation{
		Entity: domain.Entity{
			RegistryNumber: padRegistryNumber(*item.AppointedTo.CompanyNumber),
			Name:           item.AppointedTo.CompanyName,
			Kind:           domain.EntityCompany,
		},
		StartedOn: parseDate(item.AppointedOn),
		EndedOn:   parseDate(item.ResignedOn),
	}, true
}
