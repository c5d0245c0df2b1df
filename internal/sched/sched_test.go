package sched

import (
	"path/filepath"
	"testing"
	"time"

	"nowa/pkg/util"
)

type recordingSpeaker struct{ spoken []string }

func (r *recordingSpeaker) Speak(text string) { r.spoken = append(r.spoken, text) }

type recordingNotifier struct{ events []string }

func (r *recordingNotifier) Emit(event string, _ any) { r.events = append(r.events, event) }

func TestNormalizeTime(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"07:30", "07:30"},
		{"2026-08-29T07:30", "07:30"},
		{"2026-08-29T07:30:00", "07:30"},
	}
	for _, c := range cases {
		if got := NormalizeTime(c.in); got != c.want {
			t.Errorf("NormalizeTime(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAlarmStoreCRUD(t *testing.T) {
	t.Parallel()

	s := NewAlarmStore(filepath.Join(t.TempDir(), "alarms.json"))

	a, err := s.Add("2026-08-29T06:45", "pobudka")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if a.Time != "06:45" || !a.Active {
		t.Errorf("Add = %+v, want normalized active alarm", a)
	}

	if err := s.SetActive(a.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if all := s.All(); len(all) != 1 || all[0].Active {
		t.Errorf("All after toggle = %+v, want one inactive alarm", all)
	}

	if err := s.Delete(a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if all := s.All(); len(all) != 0 {
		t.Errorf("All after delete = %+v, want empty", all)
	}
}

func TestReminderStoreCRUD(t *testing.T) {
	t.Parallel()

	s := NewReminderStore(filepath.Join(t.TempDir(), "reminders.json"))

	r, err := s.Add("18:00", "wyjąć pranie")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if r.Timestamp == "" {
		t.Error("reminder should carry a creation timestamp")
	}

	got := s.All()
	want := []string{"wyjąć pranie"}
	contents := make([]string, len(got))
	for i, rr := range got {
		contents[i] = rr.Content
	}
	if !util.EqualSlices(contents, want, func(x, y string) bool { return x == y }, false) {
		t.Errorf("All = %v, want %v", contents, want)
	}
}

func TestCheckOnceFiresAlarmExactlyOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	alarms := NewAlarmStore(filepath.Join(dir, "alarms.json"))
	reminders := NewReminderStore(filepath.Join(dir, "reminders.json"))
	sp := &recordingSpeaker{}
	nt := &recordingNotifier{}
	c := NewChecker(alarms, reminders, sp, nt)

	if _, err := alarms.Add("07:30", "siłownia"); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2026, 8, 29, 7, 30, 0, 0, time.UTC)
	c.CheckOnce(at)
	c.CheckOnce(at.Add(checkPeriod))

	if len(sp.spoken) != 1 {
		t.Fatalf("spoken %d times, want exactly once: %v", len(sp.spoken), sp.spoken)
	}
	if sp.spoken[0] != "Czas na budzik: siłownia" {
		t.Errorf("spoken = %q", sp.spoken[0])
	}
	if len(nt.events) != 1 || nt.events[0] != "alarm_triggered" {
		t.Errorf("events = %v, want one alarm_triggered", nt.events)
	}
	if all := alarms.All(); len(all) != 1 || all[0].Active {
		t.Errorf("alarm should be deactivated after firing: %+v", all)
	}
}

func TestCheckOnceFiresReminderWithLabelFallback(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	alarms := NewAlarmStore(filepath.Join(dir, "alarms.json"))
	reminders := NewReminderStore(filepath.Join(dir, "reminders.json"))
	sp := &recordingSpeaker{}
	nt := &recordingNotifier{}
	c := NewChecker(alarms, reminders, sp, nt)

	// Unlabeled alarm speaks its time instead.
	if _, err := alarms.Add("12:00", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := reminders.Add("12:00", "zadzwonić do lekarza"); err != nil {
		t.Fatal(err)
	}

	c.CheckOnce(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC))

	want := []string{"Czas na budzik: 12:00", "Przypomnienie: zadzwonić do lekarza"}
	if !util.EqualSlices(sp.spoken, want, func(x, y string) bool { return x == y }, false) {
		t.Errorf("spoken = %v, want %v", sp.spoken, want)
	}
}

func TestCheckOnceNoMatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	alarms := NewAlarmStore(filepath.Join(dir, "alarms.json"))
	reminders := NewReminderStore(filepath.Join(dir, "reminders.json"))
	sp := &recordingSpeaker{}
	nt := &recordingNotifier{}
	c := NewChecker(alarms, reminders, sp, nt)

	if _, err := alarms.Add("07:30", ""); err != nil {
		t.Fatal(err)
	}
	c.CheckOnce(time.Date(2026, 8, 29, 7, 29, 0, 0, time.UTC))

	if len(sp.spoken) != 0 || len(nt.events) != 0 {
		t.Errorf("nothing should fire a minute early: spoken=%v events=%v", sp.spoken, nt.events)
	}
}
