package main

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const noDateSentinel = "Não informado"

// Matches "14/07/2025", "14/07/2025 13:00" and "14/07/2025 às 13:00".
var schedulingDateRegex = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})(?:\s*(?:[^\s\d]+\s*)?(\d{2}):(\d{2}))?`)

// ParseSchedulingDate parses the portal's free-text Brazilian scheduling
// date. Dates without a time default to 09:00. Returns false for empty or
// unparseable text.
func ParseSchedulingDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == noDateSentinel {
		return time.Time{}, false
	}
	m := schedulingDateRegex.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, minute := 9, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	// Reject rollovers like 32/13/2025.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}

var ptWeekdays = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

var ptMonths = [...]string{
	"jan.", "fev.", "mar.", "abr.", "mai.", "jun.",
	"jul.", "ago.", "set.", "out.", "nov.", "dez.",
}

// FormatTicketDate renders the portal's "DD/MM/YYYY HH:mm" string as
// "sábado, 27 de dez. de 2025, às 17:31". Formatting is manual because the
// runtime may lack pt-BR locale data. Unparseable input comes back as-is.
func FormatTicketDate(dateStr string) string {
	parts := strings.SplitN(strings.TrimSpace(dateStr), " ", 2)
	if len(parts) != 2 {
		return dateStr
	}
	d, err := time.Parse("02/01/2006", parts[0])
	if err != nil {
		return dateStr
	}
	return fmt.Sprintf("%s, %d de %s de %d, às %s",
		ptWeekdays[d.Weekday()], d.Day(), ptMonths[d.Month()-1], d.Year(), parts[1])
}

// FormatReminderDate renders a reminder's date (no time, per user request on
// the original system): "segunda-feira, 14 de jul. de 2025".
func FormatReminderDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d",
		ptWeekdays[t.Weekday()], t.Day(), ptMonths[t.Month()-1], t.Year())
}

// autoCreateReminders creates one ticket-linked reminder per recipient when a
// newly persisted ticket carries a parseable future scheduling date. Each
// step that disqualifies the ticket logs and moves on; nothing here is an
// error for the cycle.
func (r *Reconciler) autoCreateReminders(t Ticket, recipients []User) {
	if t.ScheduleText == "" || t.ScheduleText == noDateSentinel {
		return
	}

	scheduled, ok := ParseSchedulingDate(t.ScheduleText, r.cfg.Location)
	if !ok {
		log.Printf("Auto-reminder skipped for #%s: unparseable date %q", t.Number, t.ScheduleText)
		return
	}
	if !scheduled.After(r.now()) {
		log.Printf("Auto-reminder skipped for #%s: date %q is in the past", t.Number, t.ScheduleText)
		return
	}

	requester := strings.TrimSpace(t.Requester)
	if requester == "" {
		requester = "Desconhecido"
	}
	location := strings.TrimSpace(t.InstallLocation)
	if location == "" {
		location = strings.TrimSpace(t.Location)
	}

	for _, u := range recipients {
		exists, err := ReminderExistsForTicket(r.db, u.Phone, t.Number)
		if err != nil {
			log.Printf("Auto-reminder dedup check failed for #%s: %v", t.Number, err)
			continue
		}
		if exists {
			continue
		}

		rem := Reminder{
			Phone:        u.Phone,
			Title:        "Solicitante: " + requester,
			Description:  strings.TrimSpace(t.Description),
			SendAt:       scheduled,
			DisplayTime:  t.ScheduleText,
			Kind:         ReminderServiceDesk,
			Requester:    requester,
			Location:     location,
			Room:         strings.TrimSpace(t.Room),
			ScheduleText: t.ScheduleText,
			TicketNumber: t.Number,
			AutoCreated:  true,
		}
		if err := InsertReminder(r.db, rem); err != nil {
			log.Printf("Auto-reminder insert failed for #%s: %v", t.Number, err)
			continue
		}
		log.Printf("Auto-reminder created for ticket #%s -> %s", t.Number, scheduled.Format("02/01/2006 15:04"))
	}
}
