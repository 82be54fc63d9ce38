package api

import "testing"

func TestStreamURL_MirrorsPageSecurity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		page string
		want string
	}{
		{"https://dash.example.com/", "wss://dash.example.com/ws/stats"},
		{"http://127.0.0.1:8000/index.html", "ws://127.0.0.1:8000/ws/stats"},
		{"localhost:8000", "ws://localhost:8000/ws/stats"},
	}
	for _, tc := range cases {
		got, err := StreamURL(tc.page, "")
		if err != nil {
			t.Fatalf("%s: %v", tc.page, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got=%s want=%s", tc.page, got, tc.want)
		}
	}
}

func TestStreamURL_CustomPath(t *testing.T) {
	t.Parallel()

	got, err := StreamURL("https://dash.example.com", "/live")
	if err != nil {
		t.Fatalf("StreamURL: %v", err)
	}
	if got != "wss://dash.example.com/live" {
		t.Fatalf("got=%s", got)
	}
}

func TestStreamURL_Invalid(t *testing.T) {
	t.Parallel()

	for _, page := range []string{"", "ftp://host/", "http://"} {
		if _, err := StreamURL(page, ""); err == nil {
			t.Fatalf("%q: expected error", page)
		}
	}
}

func TestBaseURL(t *testing.T) {
	t.Parallel()

	got, err := BaseURL("https://dash.example.com:8443/dashboard?tab=1")
	if err != nil {
		t.Fatalf("BaseURL: %v", err)
	}
	if got != "https://dash.example.com:8443" {
		t.Fatalf("got=%s", got)
	}
}
