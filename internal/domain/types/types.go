// Package types contains common read shapes shared by the service and the API.
package types

// Entry is one row of the player rating leaderboard.
type Entry struct {
	Rank     int     `json:"rank"`
	PlayerID string  `json:"player_id"`
	Rating   float64 `json:"rating"`
}

// RecalcResult reports a full stats rebuild.
type RecalcResult struct {
	TriangularsProcessed int `json:"triangulars_processed"`
	PlayersUpdated       int `json:"players_updated"`
}
