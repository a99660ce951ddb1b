package entity

import "time"

// SyncProgress is the persisted cursor of one registry search configuration.
type SyncProgress struct {
	ID              string    `json:"id"`
	SearchKey       string    `json:"search_key"`
	LastFetchedSkip int       `json:"last_fetched_skip"`
	TotalFetched    int       `json:"total_fetched"`
	TotalAvailable  int       `json:"total_available"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsComplete reports whether the cursor reached the registry total.
func (p *SyncProgress) IsComplete() bool {
	return p.TotalAvailable == 0 || p.LastFetchedSkip >= p.TotalAvailable
}
