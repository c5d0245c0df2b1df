package hub

import (
	"context"
	"encoding/json"
	log "log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"nowa/internal/notes"
	"nowa/internal/sched"
	"nowa/internal/sysmon"
	"nowa/internal/weather"
)

// API exposes the dashboard's JSON endpoints over the assistant's stores.
type API struct {
	Hub       *Hub
	Notes     *notes.Store
	Alarms    *sched.AlarmStore
	Reminders *sched.ReminderStore
	Weather   *weather.Client
	Monitor   *sysmon.Monitor

	SettingsPath string
	settingsMu   sync.Mutex
}

type message struct {
	Message string `json:"message"`
}

// defaultSettings is served when the settings file does not exist yet.
var defaultSettings = map[string]string{"city": "Szczecin", "mac": ""}

func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", a.Hub.HandleWS)

	mux.HandleFunc("GET /api/weather", a.getWeather)
	mux.HandleFunc("GET /api/system", a.getSystem)

	mux.HandleFunc("GET /api/notes", a.listNotes)
	mux.HandleFunc("POST /api/notes", a.addNote)
	mux.HandleFunc("DELETE /api/notes/{id}", a.deleteNote)

	mux.HandleFunc("GET /api/alarms", a.listAlarms)
	mux.HandleFunc("POST /api/alarms", a.addAlarm)
	mux.HandleFunc("DELETE /api/alarms/{id}", a.deleteAlarm)
	mux.HandleFunc("PUT /api/alarms/{id}/toggle", a.toggleAlarm)

	mux.HandleFunc("GET /api/reminders", a.listReminders)
	mux.HandleFunc("POST /api/reminders", a.addReminder)
	mux.HandleFunc("DELETE /api/reminders/{id}", a.deleteReminder)
	mux.HandleFunc("PUT /api/reminders/{id}/toggle", a.toggleReminder)

	mux.HandleFunc("GET /api/settings", a.getSettings)
	mux.HandleFunc("POST /api/settings", a.saveSettings)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode response", "err", err)
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

func (a *API) getWeather(w http.ResponseWriter, r *http.Request) {
	report, err := a.Weather.Current(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		writeJSON(w, http.StatusBadGateway, message{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) getSystem(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Monitor.Sample()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, message{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) listNotes(w http.ResponseWriter, r *http.Request) {
	all, err := a.Notes.All()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, message{Message: err.Error()})
		return
	}
	if all == nil {
		all = []notes.Note{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (a *API) addNote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == "" {
		writeJSON(w, http.StatusBadRequest, message{Message: "Notatka nie może być pusta!"})
		return
	}
	note, err := a.Notes.Add(body.Content)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, message{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (a *API) deleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, message{Message: "Nieprawidłowy identyfikator."})
		return
	}
	if err := a.Notes.Delete(id); err != nil {
		writeJSON(w, http.StatusNotFound, message{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Notatka usunięta!"})
}

func (a *API) listAlarms(w http.ResponseWriter, r *http.Request) {
	all := a.Alarms.All()
	if all == nil {
		all = []sched.Alarm{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (a *API) addAlarm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Time  string `json:"time"`
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Time == "" {
		writeJSON(w, http.StatusBadRequest, message{Message: "Czas budzika jest wymagany."})
		return
	}
	if _, err := a.Alarms.Add(body.Time, body.Label); err != nil {
		writeJSON(w, http.StatusInternalServerError, message{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, message{Message: "Budzik dodany!"})
}

func (a *API) deleteAlarm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, message{Message: "Nieprawidłowy identyfikator."})
		return
	}
	if err := a.Alarms.Delete(id); err != nil {
		writeJSON(w, http.StatusNotFound, message{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Budzik usunięty!"})
}

func (a *API) toggleAlarm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, message{Message: "Nieprawidłowy identyfikator."})
		return
	}
	for _, al := range a.Alarms.All() {
		if al.ID == id {
			if err := a.Alarms.SetActive(id, !al.Active); err != nil {
				writeJSON(w, http.StatusInternalServerError, message{Message: err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, message{Message: "Status budzika zmieniony!"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, message{Message: "Nie znaleziono budzika."})
}

func (a *API) listReminders(w http.ResponseWriter, r *http.Request) {
	all := a.Reminders.All()
	if all == nil {
		all = []sched.Reminder{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (a *API) addReminder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Time    string `json:"time"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Time == "" || body.Content == "" {
		writeJSON(w, http.StatusBadRequest, message{Message: "Czas i treść przypomnienia są wymagane."})
		return
	}
	if _, err := a.Reminders.Add(body.Time, body.Content); err != nil {
		writeJSON(w, http.StatusInternalServerError, message{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, message{Message: "Przypomnienie dodane!"})
}

func (a *API) deleteReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, message{Message: "Nieprawidłowy identyfikator."})
		return
	}
	if err := a.Reminders.Delete(id); err != nil {
		writeJSON(w, http.StatusNotFound, message{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Przypomnienie usunięte!"})
}

func (a *API) toggleReminder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, message{Message: "Nieprawidłowy identyfikator."})
		return
	}
	for _, rm := range a.Reminders.All() {
		if rm.ID == id {
			if err := a.Reminders.SetActive(id, !rm.Active); err != nil {
				writeJSON(w, http.StatusInternalServerError, message{Message: err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, message{Message: "Status przypomnienia zmieniony!"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, message{Message: "Nie znaleziono przypomnienia."})
}

func (a *API) getSettings(w http.ResponseWriter, r *http.Request) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	data, err := os.ReadFile(a.SettingsPath)
	if err != nil {
		writeJSON(w, http.StatusOK, defaultSettings)
		return
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		writeJSON(w, http.StatusOK, defaultSettings)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) saveSettings(w http.ResponseWriter, r *http.Request) {
	var v map[string]any
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusBadRequest, message{Message: "Nieprawidłowe ustawienia."})
		return
	}

	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, message{Message: err.Error()})
		return
	}
	if err := os.WriteFile(a.SettingsPath, data, 0o644); err != nil {
		writeJSON(w, http.StatusInternalServerError, message{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Ustawienia zapisane!"})
}

// Serve runs the HTTP server until ctx is cancelled.
func (a *API) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: a.Routes()}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	log.Info("dashboard listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
