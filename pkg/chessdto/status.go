package chessdto

import "time"

// LobbyEntry is one open game in the /lobby listing.
type LobbyEntry struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// ServerStats is the /stats document.
type ServerStats struct {
	Sessions    int `json:"sessions"`
	Waiting     int `json:"waiting"`
	Active      int `json:"active"`
	Finished    int `json:"finished"`
	Connections int `json:"connections"`
}
