// Package statustest provides a fake dashboard server serving the polled
// status endpoint, the status stream and the dashboard page.
package statustest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"dashwatch/internal/api"
)

// Server is an httptest server standing in for the dashboard.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	code     int
	body     []byte
	page     string
	headers  []http.Header
	dials    int
	rejectWS bool
	live     map[*Stream]struct{}

	upgrader websocket.Upgrader
	streams  chan *Stream
}

// NewServer starts a fake dashboard. The status endpoint answers 503 with
// {"error":"Bot not ready"} until SetStatus is called.
func NewServer() *Server {
	s := &Server{
		code:    http.StatusServiceUnavailable,
		body:    []byte(`{"error":"Bot not ready"}`),
		live:    make(map[*Stream]struct{}),
		streams: make(chan *Stream, 16),
	}

	r := mux.NewRouter()
	r.HandleFunc(api.DefaultStatusPath, s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc(api.DefaultStreamPath, s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	return s
}

// Close drops every open stream and stops the server.
func (s *Server) Close() {
	s.mu.Lock()
	live := make([]*Stream, 0, len(s.live))
	for st := range s.live {
		live = append(live, st)
	}
	s.mu.Unlock()
	for _, st := range live {
		st.Close()
	}
	s.Server.Close()
}

// SetStatus sets the code and JSON body of the next status responses.
func (s *Server) SetStatus(code int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	s.SetRawStatus(code, data)
}

// SetRawStatus sets the code and raw body of the next status responses.
func (s *Server) SetRawStatus(code int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
	s.body = body
}

// SetPage sets the HTML served at "/".
func (s *Server) SetPage(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
}

// RejectStreams makes the stream endpoint fail the handshake.
func (s *Server) RejectStreams(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectWS = reject
}

// Headers returns the request headers of every status request so far.
func (s *Server) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]http.Header, len(s.headers))
	copy(out, s.headers)
	return out
}

// Dials returns the number of stream handshakes attempted.
func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

// Streams yields each accepted stream connection.
func (s *Server) Streams() <-chan *Stream {
	return s.streams
}

// DashboardURL is the page URL clients derive their endpoints from.
func (s *Server) DashboardURL() string {
	return s.URL + "/"
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.headers = append(s.headers, r.Header.Clone())
	code, body := s.code, s.body
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.dials++
	reject := s.rejectWS
	s.mu.Unlock()

	if reject {
		http.Error(w, "stream unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	st := &Stream{conn: conn, Header: r.Header.Clone(), server: s}

	s.mu.Lock()
	s.live[st] = struct{}{}
	s.mu.Unlock()
	s.streams <- st

	// Drain until the client goes away so control frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			st.Close()
			return
		}
	}
}

// Stream is the server side of one stream connection.
type Stream struct {
	Header http.Header

	conn   *websocket.Conn
	server *Server

	writeMu sync.Mutex
	once    sync.Once
}

// Send pushes v as one JSON text message.
func (st *Stream) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return st.SendRaw(string(data))
}

// SendRaw pushes one text message verbatim.
func (st *Stream) SendRaw(msg string) error {
	st.writeMu.Lock()
	defer st.writeMu.Unlock()
	return st.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// CloseWith sends a close frame before dropping the connection.
func (st *Stream) CloseWith(code int, reason string) {
	st.writeMu.Lock()
	_ = st.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, strings.TrimSpace(reason)))
	st.writeMu.Unlock()
	st.Close()
}

// Close drops the connection without a close frame.
func (st *Stream) Close() {
	st.once.Do(func() {
		_ = st.conn.Close()
		st.server.mu.Lock()
		delete(st.server.live, st)
		st.server.mu.Unlock()
	})
}
