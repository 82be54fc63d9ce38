// Package render writes status snapshots into named display regions.
package render

import (
	"fmt"
	"strconv"

	"dashwatch/internal/model"
)

// Region identifiers.
const (
	GuildCount   = "guild-count"
	Latency      = "latency"
	ServerName   = "server-name"
	Status       = "status"
	UserCount    = "user-count"
	ChannelCount = "channel-count"
	CPUPercent   = "cpu-percent"
	RAMUsed      = "ram-used"
	RAMTotal     = "ram-total"
	RAMPercent   = "ram-percent"
	Uptime       = "uptime"
	NetSent      = "net-sent"
	NetRecv      = "net-recv"
)

// Status region values.
const (
	StatusOnline = "Online"
	StatusError  = "Error"
)

// AllRegions lists every region id in display order.
var AllRegions = []string{
	Status,
	ServerName,
	GuildCount,
	UserCount,
	ChannelCount,
	Latency,
	CPUPercent,
	RAMUsed,
	RAMTotal,
	RAMPercent,
	Uptime,
	NetSent,
	NetRecv,
}

// Region is one writable display slot.
type Region interface {
	SetText(text string)
}

// Sink resolves region ids. Missing regions are skipped.
type Sink interface {
	Region(id string) (Region, bool)
}

// Dashboard formats snapshots into a Sink.
type Dashboard struct {
	sink Sink
}

// NewDashboard returns a dashboard writing into sink.
func NewDashboard(sink Sink) *Dashboard {
	return &Dashboard{sink: sink}
}

// Update renders snap. A nil snapshot marks the status region as Error and
// leaves every other region as it was.
func (d *Dashboard) Update(snap *model.StatusSnapshot) {
	if snap == nil {
		d.set(Status, StatusError)
		return
	}
	for id, text := range Texts(*snap) {
		d.set(id, text)
	}
	d.set(Status, StatusOnline)
}

func (d *Dashboard) set(id, text string) {
	if r, ok := d.sink.Region(id); ok {
		r.SetText(text)
	}
}

// Texts returns the display text of every region snap carries. A flat
// snapshot only carries guild count, latency and server name. The
// server-name region is always written, empty when the payload has none.
func Texts(snap model.StatusSnapshot) map[string]string {
	out := map[string]string{
		GuildCount: strconv.Itoa(snap.Bot.GuildCount),
		Latency:    FormatNumber(snap.Bot.LatencyMs) + " ms",
		ServerName: snap.ServerName,
	}
	if snap.Flat {
		return out
	}
	out[UserCount] = strconv.Itoa(snap.Bot.UserCount)
	out[ChannelCount] = strconv.Itoa(snap.Bot.ChannelCount)
	out[CPUPercent] = FormatNumber(snap.System.CPUPercent) + "%"
	out[RAMUsed] = FormatNumber(snap.System.RAMUsedGB) + " GB"
	out[RAMTotal] = FormatNumber(snap.System.RAMTotalGB) + " GB"
	out[RAMPercent] = FormatNumber(snap.System.RAMPercent) + "%"
	out[Uptime] = FormatUptime(snap.System.UptimeSeconds)
	out[NetSent] = FormatNumber(snap.System.NetworkSentMB) + " MB"
	out[NetRecv] = FormatNumber(snap.System.NetworkRecvMB) + " MB"
	return out
}

// FormatNumber renders v with the fewest digits that round-trip.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatUptime renders seconds as "{d}d {h}h {m}m {s}s".
func FormatUptime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := seconds / 86400
	h := seconds % 86400 / 3600
	m := seconds % 3600 / 60
	s := seconds % 60
	return fmt.Sprintf("%dd %dh %dm %ds", d, h, m, s)
}
