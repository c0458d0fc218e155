package dto

// StreakRequest replaces the rosary streak.
type StreakRequest struct {
	Length     *int    `json:"length"`
	LastPrayed *string `json:"last_prayed"`
}
