package hub

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"

	"nowa/internal/notes"
	"nowa/internal/sched"
)

func wsURL(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func newTestAPI(t *testing.T) *API {
	t.Helper()
	dir := t.TempDir()
	return &API{
		Hub:          New(),
		Notes:        notes.NewStore(filepath.Join(dir, "notes.json")),
		Alarms:       sched.NewAlarmStore(filepath.Join(dir, "alarms.json")),
		Reminders:    sched.NewReminderStore(filepath.Join(dir, "reminders.json")),
		SettingsPath: filepath.Join(dir, "settings.json"),
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	srv := httptest.NewServer(api.Routes())
	defer srv.Close()

	conn, _, err := ws.DefaultDialer.Dial(wsURL(t, srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForClients(t, api.Hub, 1)
	api.Hub.Emit("conversation_update", map[string]string{"speaker": "Nowa", "text": "cześć"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal %q: %v", msg, err)
	}
	if got.Event != "conversation_update" || got.Data["text"] != "cześć" {
		t.Fatalf("unexpected broadcast: %+v", got)
	}
}

func TestInboundEventTriggersCallback(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	started := make(chan struct{})
	api.Hub.OnStartListening = func() { close(started) }

	srv := httptest.NewServer(api.Routes())
	defer srv.Close()

	conn, _, err := ws.DefaultDialer.Dial(wsURL(t, srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(ws.TextMessage, []byte(`{"event":"start_listening"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never fired")
	}
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d", n)
}

func TestNoteEndpoints(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	srv := httptest.NewServer(api.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/notes", "application/json", bytes.NewBufferString(`{"content":""}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty note: status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/notes", "application/json", bytes.NewBufferString(`{"content":"kup mleko"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	var created notes.Note
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || created.Content != "kup mleko" {
		t.Fatalf("create: status = %d, note = %+v", resp.StatusCode, created)
	}

	resp, err = http.Get(srv.URL + "/api/notes")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var all []notes.Note
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(all) != 1 {
		t.Fatalf("len(all) = %d, want 1", len(all))
	}
}

func TestAlarmToggle(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	srv := httptest.NewServer(api.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/alarms", "application/json", bytes.NewBufferString(`{"time":"07:30","label":"praca"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201", resp.StatusCode)
	}

	alarms := api.Alarms.All()
	if len(alarms) != 1 || !alarms[0].Active {
		t.Fatalf("alarms = %+v", alarms)
	}

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/alarms/"+itoa(alarms[0].ID)+"/toggle", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle: status = %d, want 200", resp.StatusCode)
	}
	if got := api.Alarms.All(); got[0].Active {
		t.Fatal("alarm still active after toggle")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	srv := httptest.NewServer(api.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/settings")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if got["city"] != "Szczecin" {
		t.Fatalf("default city = %v, want Szczecin", got["city"])
	}

	resp, err = http.Post(srv.URL+"/api/settings", "application/json", bytes.NewBufferString(`{"city":"Gdańsk","mac":"aa:bb:cc:dd:ee:ff"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/settings")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got = nil
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if got["city"] != "Gdańsk" {
		t.Fatalf("saved city = %v, want Gdańsk", got["city"])
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
