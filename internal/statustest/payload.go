package statustest

import "dashwatch/internal/api"

// NestedPayload returns a well-formed nested payload with every field set.
func NestedPayload() api.NestedStatus {
	return api.NestedStatus{
		Bot: api.BotStatus{
			LatencyMs:    42,
			GuildCount:   17,
			UserCount:    5120,
			ChannelCount: 311,
		},
		System: api.SystemStatus{
			CPUPercent:      12.5,
			RAMUsedGB:       3.21,
			RAMTotalGB:      15.6,
			RAMPercent:      20.6,
			UptimeSeconds:   90061,
			NetworkIOSentMB: 104.75,
			NetworkIORecvMB: 2048.5,
		},
	}
}

// FlatPayload returns a well-formed flat payload.
func FlatPayload() api.FlatStatus {
	return api.FlatStatus{
		GuildCount: 17,
		LatencyMs:  42,
		ServerName: "Apollo",
	}
}
