package main

import (
	"fmt"
	"strings"
)

// FormatTicketMessage builds the WhatsApp message announcing a new ticket.
// Optional sections (location/room, scheduling) are included only when the
// ticket has them.
func FormatTicketMessage(t Ticket, portalURL string) string {
	requester := strings.TrimSpace(t.Requester)
	if requester == "" {
		requester = "Desconhecido"
	}
	description := strings.TrimSpace(t.Description)
	if description == "" {
		description = "Sem descrição"
	}
	location := strings.TrimSpace(t.InstallLocation)
	if location == "" {
		location = strings.TrimSpace(t.Location)
	}
	room := strings.TrimSpace(t.Room)

	var b strings.Builder
	b.WriteString("Novo Chamado em *ServiceDesk* 📝\n\n")
	b.WriteString("*Solicitante:* _" + requester + "_\n\n")
	b.WriteString("*Descrição:* " + description + "\n\n")

	if location != "" || room != "" {
		var parts []string
		if location != "" {
			parts = append(parts, "*Local:* _"+location+"_")
		}
		if room != "" {
			parts = append(parts, "*Sala:* _"+room+"_")
		}
		b.WriteString(strings.Join(parts, " ") + "\n\n")
	}

	if t.ScheduleText != "" && t.ScheduleText != noDateSentinel {
		b.WriteString("*Agendado para:* _" + t.ScheduleText + "_\n\n")
	}

	b.WriteString("*Ver no ServiceDesk:* " + strings.TrimRight(portalURL, "/") + "/" + t.Number + "\n\n")

	rawDate := t.OpenedDetail
	if rawDate == "" {
		rawDate = t.OpenedAt
	}
	b.WriteString("📅 " + FormatTicketDate(rawDate))

	return b.String()
}

// FormatReminderMessage builds the WhatsApp message for a due reminder.
// Ticket-linked reminders get the extended template with the scheduling
// metadata; generic reminders the compact one.
func FormatReminderMessage(r Reminder) string {
	if r.Kind == ReminderServiceDesk {
		var b strings.Builder
		b.WriteString("Lembrete ShadowDesk 📌\n\n")
		b.WriteString("*" + r.Title + "*\n")
		if r.Description != "" {
			b.WriteString("_" + r.Description + "_\n")
		}
		var parts []string
		if r.Location != "" {
			parts = append(parts, "*Local:* _"+r.Location+"_")
		}
		if r.Room != "" {
			parts = append(parts, "*Sala:* _"+r.Room+"_")
		}
		if len(parts) > 0 {
			b.WriteString("\n" + strings.Join(parts, " ") + "\n")
		}
		if r.ScheduleText != "" {
			b.WriteString("\n*Agendado para:* _" + r.ScheduleText + "_\n")
		}
		b.WriteString("\n📅 " + FormatReminderDate(r.SendAt))
		return b.String()
	}

	var b strings.Builder
	b.WriteString("Lembrete ShadowDesk 📌\n\n")
	b.WriteString("*" + r.Title + "*\n")
	if r.Description != "" {
		b.WriteString("_" + r.Description + "_\n")
	}
	b.WriteString("\n📅 " + FormatReminderDate(r.SendAt))
	return b.String()
}

var alertHeadlines = map[string]struct {
	emoji string
	title string
	unit  string
	label string
}{
	AlertTemperature: {"🌡️", "Alerta de Temperatura Alta", "°C", "Temperatura atual"},
	AlertWind:        {"💨", "Alerta de Ventos Fortes", " km/h", "Velocidade do vento"},
	AlertRain:        {"🌧️", "Alerta de Precipitação", "%", "Chance de chuva"},
	AlertHumidity:    {"💧", "Alerta de Umidade Baixa", "%", "Umidade atual"},
}

// FormatAlertLine renders one triggered alert's message body.
func FormatAlertLine(a TriggeredAlert) string {
	h := alertHeadlines[a.Type]
	return fmt.Sprintf("%s *%s*\n%s: %g%s (limite: %g%s)",
		h.emoji, h.title, h.label, a.Value, h.unit, a.Threshold, h.unit)
}

// FormatWeatherAlertMessage joins triggered alerts into one message.
func FormatWeatherAlertMessage(alerts []TriggeredAlert, cityLabel string) string {
	lines := make([]string, 0, len(alerts))
	for _, a := range alerts {
		lines = append(lines, a.Message)
	}
	return "⚠️ *Alerta Meteorológico ShadowDesk*\n\n" +
		strings.Join(lines, "\n\n") +
		"\n\n📍 " + cityLabel
}
