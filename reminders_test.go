package main

import (
	"testing"
	"time"
)

func TestParseSchedulingDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("loading timezone: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"date with time", "14/07/2025 13:00", time.Date(2025, 7, 14, 13, 0, 0, 0, loc), true},
		{"date with às", "14/07/2025 às 13:30", time.Date(2025, 7, 14, 13, 30, 0, 0, loc), true},
		{"date only defaults to 09:00", "14/07/2025", time.Date(2025, 7, 14, 9, 0, 0, 0, loc), true},
		{"embedded in free text", "Preferência: 05/08/2025 08:15 pela manhã", time.Date(2025, 8, 5, 8, 15, 0, 0, loc), true},
		{"sentinel", "Não informado", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"no date present", "qualquer horário", time.Time{}, false},
		{"impossible day", "32/01/2025", time.Time{}, false},
		{"impossible month", "10/13/2025", time.Time{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseSchedulingDate(tc.input, loc)
			if ok != tc.ok {
				t.Fatalf("ParseSchedulingDate(%q) ok = %v, want %v", tc.input, ok, tc.ok)
			}
			if ok && !got.Equal(tc.want) {
				t.Errorf("ParseSchedulingDate(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestFormatTicketDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"27/12/2025 17:31", "sábado, 27 de dez. de 2025, às 17:31"},
		{"14/07/2025 09:00", "segunda-feira, 14 de jul. de 2025, às 09:00"},
		{"not a date", "not a date"},
		{"27/12/2025", "27/12/2025"}, // no time part, returned as-is
	}
	for _, tc := range tests {
		if got := FormatTicketDate(tc.input); got != tc.want {
			t.Errorf("FormatTicketDate(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestFormatReminderDate(t *testing.T) {
	d := time.Date(2025, 7, 14, 13, 0, 0, 0, time.UTC)
	if got, want := FormatReminderDate(d), "segunda-feira, 14 de jul. de 2025"; got != want {
		t.Errorf("FormatReminderDate = %q, want %q", got, want)
	}
}

func TestAutoCreateRemindersFutureDate(t *testing.T) {
	db := newTestDB(t)
	r := newTestReconciler(t, db, nil)
	r.now = func() time.Time { return time.Date(2025, 7, 1, 10, 0, 0, 0, r.cfg.Location) }

	ticket := Ticket{
		Number:       "500",
		Requester:    "Ana Souza",
		Location:     "Bloco B",
		Description:  "Instalar projetor",
		Room:         "12",
		ScheduleText: "14/07/2025 13:00",
	}
	recipients := []User{
		{ID: "u1", Phone: "5514991112222"},
		{ID: "u2", Phone: "5514993334444"},
	}

	r.autoCreateReminders(ticket, recipients)

	due, err := DueReminders(db, time.Date(2025, 7, 14, 13, 0, 0, 0, r.cfg.Location))
	if err != nil {
		t.Fatalf("DueReminders failed: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("got %d reminders, want one per recipient", len(due))
	}
	for _, rem := range due {
		if rem.Title != "Solicitante: Ana Souza" {
			t.Errorf("title = %q", rem.Title)
		}
		if rem.Kind != ReminderServiceDesk || !rem.AutoCreated {
			t.Errorf("reminder not flagged as auto servicedesk: %+v", rem)
		}
		if rem.TicketNumber != "500" {
			t.Errorf("ticket number = %q", rem.TicketNumber)
		}
	}

	// Rescraping the same ticket must not duplicate reminders.
	r.autoCreateReminders(ticket, recipients)
	due, _ = DueReminders(db, time.Date(2025, 7, 14, 13, 0, 0, 0, r.cfg.Location))
	if len(due) != 2 {
		t.Errorf("dedup failed, got %d reminders", len(due))
	}
}

func TestAutoCreateRemindersSkipsPastAndUnparseable(t *testing.T) {
	db := newTestDB(t)
	r := newTestReconciler(t, db, nil)
	r.now = func() time.Time { return time.Date(2025, 7, 20, 10, 0, 0, 0, r.cfg.Location) }

	recipients := []User{{ID: "u1", Phone: "5514991112222"}}

	r.autoCreateReminders(Ticket{Number: "1", ScheduleText: "14/07/2025 13:00"}, recipients) // past
	r.autoCreateReminders(Ticket{Number: "2", ScheduleText: "Não informado"}, recipients)
	r.autoCreateReminders(Ticket{Number: "3", ScheduleText: "qualquer dia"}, recipients)
	r.autoCreateReminders(Ticket{Number: "4"}, recipients)

	due, err := DueReminders(db, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DueReminders failed: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("expected no reminders, got %d", len(due))
	}
}
