package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dashwatch/internal/model"
)

func sampleSnapshot() *model.StatusSnapshot {
	return &model.StatusSnapshot{
		Bot: model.BotStats{LatencyMs: 42, GuildCount: 17, UserCount: 5120, ChannelCount: 311},
		System: model.SystemStats{
			CPUPercent:    12.5,
			RAMUsedGB:     3.21,
			RAMTotalGB:    15.6,
			RAMPercent:    20.6,
			UptimeSeconds: 90061,
			NetworkSentMB: 104.75,
			NetworkRecvMB: 2048.5,
		},
	}
}

func TestFormatUptime(t *testing.T) {
	t.Parallel()

	cases := map[int64]string{
		0:      "0d 0h 0m 0s",
		59:     "0d 0h 0m 59s",
		3600:   "0d 1h 0m 0s",
		90061:  "1d 1h 1m 1s",
		864000: "10d 0h 0m 0s",
		-5:     "0d 0h 0m 0s",
	}
	for in, want := range cases {
		if got := FormatUptime(in); got != want {
			t.Fatalf("FormatUptime(%d)=%q want %q", in, got, want)
		}
	}
}

func TestDashboard_Update(t *testing.T) {
	t.Parallel()

	regions := NewRegions()
	NewDashboard(regions).Update(sampleSnapshot())

	want := map[string]string{
		Status:       StatusOnline,
		ServerName:   "",
		GuildCount:   "17",
		UserCount:    "5120",
		ChannelCount: "311",
		Latency:      "42 ms",
		CPUPercent:   "12.5%",
		RAMUsed:      "3.21 GB",
		RAMTotal:     "15.6 GB",
		RAMPercent:   "20.6%",
		Uptime:       "1d 1h 1m 1s",
		NetSent:      "104.75 MB",
		NetRecv:      "2048.5 MB",
	}
	if diff := cmp.Diff(want, regions.Snapshot()); diff != "" {
		t.Fatalf("regions mismatch (-want +got):\n%s", diff)
	}
}

func TestDashboard_NilKeepsValues(t *testing.T) {
	t.Parallel()

	regions := NewRegions()
	d := NewDashboard(regions)
	d.Update(sampleSnapshot())
	before := regions.Snapshot()

	d.Update(nil)

	after := regions.Snapshot()
	if after[Status] != StatusError {
		t.Fatalf("status=%q", after[Status])
	}
	delete(before, Status)
	delete(after, Status)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("nil update touched regions:\n%s", diff)
	}
}

func TestDashboard_MissingRegionsSkipped(t *testing.T) {
	t.Parallel()

	regions := NewRegions(GuildCount, Latency, ServerName)
	snap := sampleSnapshot()
	snap.ServerName = "Apollo"
	NewDashboard(regions).Update(snap)

	want := map[string]string{GuildCount: "17", Latency: "42 ms", ServerName: "Apollo"}
	if diff := cmp.Diff(want, regions.Snapshot()); diff != "" {
		t.Fatalf("regions mismatch (-want +got):\n%s", diff)
	}
	if _, ok := regions.Region(Status); ok {
		t.Fatalf("status region should not exist")
	}
}

func TestDashboard_FlatOnlyWritesCarriedRegions(t *testing.T) {
	t.Parallel()

	regions := NewRegions()
	NewDashboard(regions).Update(&model.StatusSnapshot{
		Bot:        model.BotStats{LatencyMs: 88, GuildCount: 3},
		Flat:       true,
		ServerName: "Apollo",
	})

	want := map[string]string{
		Status:       StatusOnline,
		ServerName:   "Apollo",
		GuildCount:   "3",
		Latency:      "88 ms",
		UserCount:    "",
		ChannelCount: "",
		CPUPercent:   "",
		RAMUsed:      "",
		RAMTotal:     "",
		RAMPercent:   "",
		Uptime:       "",
		NetSent:      "",
		NetRecv:      "",
	}
	if diff := cmp.Diff(want, regions.Snapshot()); diff != "" {
		t.Fatalf("regions mismatch (-want +got):\n%s", diff)
	}
}

func TestDashboard_ServerNameNotCarriedOver(t *testing.T) {
	t.Parallel()

	regions := NewRegions()
	d := NewDashboard(regions)
	d.Update(&model.StatusSnapshot{Bot: model.BotStats{GuildCount: 3}, Flat: true, ServerName: "Apollo"})
	d.Update(&model.StatusSnapshot{Bot: model.BotStats{GuildCount: 4}, Flat: true})

	if got := regions.Text(ServerName); got != "" {
		t.Fatalf("server-name=%q", got)
	}
	if got := regions.Text(GuildCount); got != "4" {
		t.Fatalf("guild-count=%q", got)
	}
}

func TestTerminal_Update(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term := NewTerminal(&buf)
	if err := term.Update(sampleSnapshot()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"status", "Online", "uptime", "1d 1h 1m 1s", "net-recv", "2048.5 MB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ServerName) {
		t.Fatalf("empty server-name printed:\n%s", out)
	}

	buf.Reset()
	if err := term.Update(nil); err != nil {
		t.Fatalf("Update(nil): %v", err)
	}
	if !strings.Contains(buf.String(), "Error") || !strings.Contains(buf.String(), "17") {
		t.Fatalf("nil update output:\n%s", buf.String())
	}
}
