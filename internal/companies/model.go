package companies

import "time"

// Company represents a startup whose decks are under evaluation.
type Company struct {
	ID          string
	Name        string
	Sector      string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
