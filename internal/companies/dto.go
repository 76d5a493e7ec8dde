package companies

import "time"

// CompanyResponse is the outward-facing representation of a company.
type CompanyResponse struct {
	CompanyID   string    `json:"companyId"`
	Name        string    `json:"name"`
	Sector      string    `json:"sector,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toResponse(company Company) CompanyResponse {
	return CompanyResponse{
		CompanyID:   company.ID,
		Name:        company.Name,
		Sector:      company.Sector,
		Description: company.Description,
		CreatedAt:   company.CreatedAt,
	}
}
