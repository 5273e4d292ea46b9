package booking

import (
	"slices"

	"psnrwanda/internal/domain"
)

// fallbackServices is shown when the backend has no services to offer
var fallbackServices = []domain.Service{
	{
		ID:          1,
		Title:       "Notary Services",
		Description: "Professional notary services for document authentication",
		IsActive:    true,
		ImageURL:    "notary.jpg",
		BulletPoints: []string{
			"Document authentication and certification",
			"Contract notarization",
			"Affidavit preparation",
			"Fast turnaround",
		},
		PriceInfo:      "Starting from RWF 25,000",
		TurnaroundTime: "24-48 hours",
	},
	{
		ID:          2,
		Title:       "Property Management",
		Description: "Comprehensive property management services",
		IsActive:    true,
		ImageURL:    "property.jpg",
		BulletPoints: []string{
			"Tenant screening and placement",
			"Rent collection and accounting",
			"Property maintenance",
			"Regular property inspections",
		},
		PriceInfo:      "Starting from RWF 50,000/month",
		TurnaroundTime: "Ongoing service",
	},
	{
		ID:          3,
		Title:       "Leasing & Renting",
		Description: "Professional leasing and renting services",
		IsActive:    true,
		ImageURL:    "leasing.jpg",
		BulletPoints: []string{
			"Market analysis and property valuation",
			"Leasing agreement preparation",
			"Tenant screening",
			"Property marketing",
		},
		PriceInfo:      "Starting from RWF 35,000",
		TurnaroundTime: "1-4 weeks",
	},
	{
		ID:          4,
		Title:       "Tax Services",
		Description: "Expert tax consultation and services",
		IsActive:    true,
		ImageURL:    "tax.jpg",
		BulletPoints: []string{
			"Tax planning and consultation",
			"Tax return preparation",
			"Tax compliance review",
			"Representation before tax authorities",
		},
		PriceInfo:      "Starting from RWF 45,000",
		TurnaroundTime: "3-10 business days",
	},
	{
		ID:          5,
		Title:       "Contract Drafting",
		Description: "Professional contract drafting services",
		IsActive:    true,
		ImageURL:    "contract.jpg",
		BulletPoints: []string{
			"Expert contract drafting",
			"Legal document review",
			"Contract templates",
			"Legal advice on terms",
		},
		PriceInfo:      "Starting from RWF 35,000",
		TurnaroundTime: "3-5 business days",
	},
	{
		ID:          6,
		Title:       "Legal Consultation",
		Description: "Expert legal consultation services",
		IsActive:    true,
		ImageURL:    "legal.jpg",
		BulletPoints: []string{
			"Legal advice",
			"Case assessment",
			"Legal strategy development",
			"Rights and obligations explanation",
		},
		PriceInfo:      "Starting from RWF 40,000",
		TurnaroundTime: "1-3 business days",
	},
}

// FallbackCatalog returns a copy of the built-in service list
func FallbackCatalog() []domain.Service {
	out := make([]domain.Service, len(fallbackServices))
	for i, s := range fallbackServices {
		s.BulletPoints = slices.Clone(s.BulletPoints)
		out[i] = s
	}
	return out
}

// FindService returns the service with the given id from list, or nil
func FindService(list []domain.Service, id int64) *domain.Service {
	for i := range list {
		if list[i].ID == id {
			svc := list[i]
			return &svc
		}
	}
	return nil
}
