package model

import "time"

// BotStats is the bot half of a status reading.
type BotStats struct {
	LatencyMs    float64
	GuildCount   int
	UserCount    int
	ChannelCount int
}

// SystemStats is the host half of a status reading.
type SystemStats struct {
	CPUPercent    float64
	RAMUsedGB     float64
	RAMTotalGB    float64
	RAMPercent    float64
	UptimeSeconds int64
	NetworkSentMB float64
	NetworkRecvMB float64
}

// StatusSnapshot is one status reading. A new snapshot replaces the previous
// one entirely; fields are never merged across readings.
type StatusSnapshot struct {
	Bot    BotStats
	System SystemStats

	// Flat is set when the reading came from the minimal payload, which
	// carries guild count, latency and server name only.
	Flat bool

	// ServerName is only carried by the flat payload.
	ServerName string
	ReceivedAt time.Time
}
