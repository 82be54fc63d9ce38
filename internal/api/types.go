package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dashwatch/internal/model"
)

// ErrNotReady is returned when a payload decodes but carries a truthy
// "error" field. The tick carries no data.
var ErrNotReady = errors.New("dashboard reported not ready")

// Variant selects which payload shape a deployment serves.
type Variant string

const (
	VariantFlat   Variant = "flat"
	VariantNested Variant = "nested"
)

// ParseVariant validates a configured payload variant.
func ParseVariant(value string) (Variant, error) {
	switch Variant(value) {
	case VariantFlat, VariantNested:
		return Variant(value), nil
	default:
		return "", fmt.Errorf("unknown payload variant %q (want flat|nested)", value)
	}
}

// FlatStatus is the minimal payload served by /api/status.
type FlatStatus struct {
	GuildCount int             `json:"guild_count"`
	LatencyMs  float64         `json:"latency_ms"`
	ServerName string          `json:"server_name"`
	Error      json.RawMessage `json:"error,omitempty"`
}

// BotStatus is the "bot" object of the nested payload.
type BotStatus struct {
	LatencyMs    float64 `json:"latency_ms"`
	GuildCount   int     `json:"guild_count"`
	UserCount    int     `json:"user_count"`
	ChannelCount int     `json:"channel_count"`
}

// SystemStatus is the "system" object of the nested payload.
type SystemStatus struct {
	CPUPercent      float64 `json:"cpu_percent"`
	RAMUsedGB       float64 `json:"ram_used_gb"`
	RAMTotalGB      float64 `json:"ram_total_gb"`
	RAMPercent      float64 `json:"ram_percent"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	NetworkIOSentMB float64 `json:"network_io_sent_mb"`
	NetworkIORecvMB float64 `json:"network_io_recv_mb"`
}

// NestedStatus is the full payload pushed on /ws/stats.
type NestedStatus struct {
	Bot    BotStatus       `json:"bot"`
	System SystemStatus    `json:"system"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// Decode parses one payload of the given variant into a snapshot.
func Decode(variant Variant, data []byte) (model.StatusSnapshot, error) {
	switch variant {
	case VariantFlat:
		if err := requireObject(data); err != nil {
			return model.StatusSnapshot{}, fmt.Errorf("decode flat status: %w", err)
		}
		var flat FlatStatus
		if err := json.Unmarshal(data, &flat); err != nil {
			return model.StatusSnapshot{}, fmt.Errorf("decode flat status: %w", err)
		}
		if truthy(flat.Error) {
			return model.StatusSnapshot{}, ErrNotReady
		}
		return flat.Snapshot()
	case VariantNested:
		if err := requireObject(data); err != nil {
			return model.StatusSnapshot{}, fmt.Errorf("decode nested status: %w", err)
		}
		var nested NestedStatus
		if err := json.Unmarshal(data, &nested); err != nil {
			return model.StatusSnapshot{}, fmt.Errorf("decode nested status: %w", err)
		}
		if truthy(nested.Error) {
			return model.StatusSnapshot{}, ErrNotReady
		}
		var sections struct {
			Bot    json.RawMessage `json:"bot"`
			System json.RawMessage `json:"system"`
		}
		if err := json.Unmarshal(data, &sections); err != nil {
			return model.StatusSnapshot{}, fmt.Errorf("decode nested status: %w", err)
		}
		for name, raw := range map[string]json.RawMessage{"bot": sections.Bot, "system": sections.System} {
			if err := requireObject(raw); err != nil {
				return model.StatusSnapshot{}, fmt.Errorf("decode nested status: %s: %w", name, err)
			}
		}
		return nested.Snapshot()
	default:
		return model.StatusSnapshot{}, fmt.Errorf("unknown payload variant %q", variant)
	}
}

// Snapshot converts the flat payload. Only bot latency and guild count are
// populated.
func (f FlatStatus) Snapshot() (model.StatusSnapshot, error) {
	if f.GuildCount < 0 || f.LatencyMs < 0 {
		return model.StatusSnapshot{}, fmt.Errorf("negative value in flat status: guild_count=%d latency_ms=%v", f.GuildCount, f.LatencyMs)
	}
	return model.StatusSnapshot{
		Bot: model.BotStats{
			LatencyMs:  f.LatencyMs,
			GuildCount: f.GuildCount,
		},
		Flat:       true,
		ServerName: f.ServerName,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// Snapshot converts the nested payload.
func (n NestedStatus) Snapshot() (model.StatusSnapshot, error) {
	checks := []struct {
		name  string
		value float64
	}{
		{"bot.latency_ms", n.Bot.LatencyMs},
		{"bot.guild_count", float64(n.Bot.GuildCount)},
		{"bot.user_count", float64(n.Bot.UserCount)},
		{"bot.channel_count", float64(n.Bot.ChannelCount)},
		{"system.cpu_percent", n.System.CPUPercent},
		{"system.ram_used_gb", n.System.RAMUsedGB},
		{"system.ram_total_gb", n.System.RAMTotalGB},
		{"system.ram_percent", n.System.RAMPercent},
		{"system.uptime_seconds", float64(n.System.UptimeSeconds)},
		{"system.network_io_sent_mb", n.System.NetworkIOSentMB},
		{"system.network_io_recv_mb", n.System.NetworkIORecvMB},
	}
	for _, c := range checks {
		if c.value < 0 {
			return model.StatusSnapshot{}, fmt.Errorf("negative value in nested status: %s=%v", c.name, c.value)
		}
	}

	return model.StatusSnapshot{
		Bot: model.BotStats{
			LatencyMs:    n.Bot.LatencyMs,
			GuildCount:   n.Bot.GuildCount,
			UserCount:    n.Bot.UserCount,
			ChannelCount: n.Bot.ChannelCount,
		},
		System: model.SystemStats{
			CPUPercent:    n.System.CPUPercent,
			RAMUsedGB:     n.System.RAMUsedGB,
			RAMTotalGB:    n.System.RAMTotalGB,
			RAMPercent:    n.System.RAMPercent,
			UptimeSeconds: n.System.UptimeSeconds,
			NetworkSentMB: n.System.NetworkIOSentMB,
			NetworkRecvMB: n.System.NetworkIORecvMB,
		},
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// requireObject rejects anything but a JSON object, including null and an
// absent value.
func requireObject(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return errNotObject
	}
	return nil
}

var errNotObject = errors.New("expected a JSON object")

// truthy reports whether an "error" value marks the payload as not ready:
// anything except null, false, 0 and "".
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch string(raw) {
	case "null", "false", `""`:
		return false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0
	}
	return true
}
