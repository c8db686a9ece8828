package main

import (
	"strings"
	"testing"
	"time"
)

func TestFormatTicketMessageFull(t *testing.T) {
	msg := FormatTicketMessage(Ticket{
		Number:          "74532",
		Requester:       "Ana Souza",
		Description:     "Projetor sem imagem",
		InstallLocation: "Bloco B",
		Room:            "12",
		ScheduleText:    "14/07/2025 13:00",
		OpenedDetail:    "27/12/2025 17:31",
	}, "https://servicedesk.example.br/atendimento/")

	for _, want := range []string{
		"Novo Chamado em *ServiceDesk* 📝",
		"*Solicitante:* _Ana Souza_",
		"*Descrição:* Projetor sem imagem",
		"*Local:* _Bloco B_ *Sala:* _12_",
		"*Agendado para:* _14/07/2025 13:00_",
		"https://servicedesk.example.br/atendimento/74532",
		"📅 sábado, 27 de dez. de 2025, às 17:31",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatTicketMessageOmitsEmptySections(t *testing.T) {
	msg := FormatTicketMessage(Ticket{
		Number:       "80001",
		ScheduleText: noDateSentinel,
		OpenedAt:     "14/07/2025 09:00",
	}, "https://servicedesk.example.br/atendimento")

	if strings.Contains(msg, "*Local:*") || strings.Contains(msg, "*Sala:*") {
		t.Errorf("location section should be absent:\n%s", msg)
	}
	if strings.Contains(msg, "Agendado para") {
		t.Errorf("sentinel schedule text should be suppressed:\n%s", msg)
	}
	if !strings.Contains(msg, "_Desconhecido_") {
		t.Errorf("empty requester should fall back to Desconhecido:\n%s", msg)
	}
	if !strings.Contains(msg, "Sem descrição") {
		t.Errorf("empty description should fall back:\n%s", msg)
	}
	// Falls back to the list opening date when there is no detail one.
	if !strings.Contains(msg, "segunda-feira, 14 de jul. de 2025, às 09:00") {
		t.Errorf("expected list opening date:\n%s", msg)
	}
}

func TestFormatTicketMessagePrefersInstallLocation(t *testing.T) {
	msg := FormatTicketMessage(Ticket{
		Number:          "1",
		Location:        "Campus geral",
		InstallLocation: "Laboratório 3",
		OpenedAt:        "14/07/2025 09:00",
	}, "https://p.example")
	if !strings.Contains(msg, "*Local:* _Laboratório 3_") {
		t.Errorf("detail location should win over the list one:\n%s", msg)
	}
}

func TestFormatReminderMessageServiceDesk(t *testing.T) {
	msg := FormatReminderMessage(Reminder{
		Title:        "Solicitante: Ana Souza",
		Description:  "Trocar monitor",
		Kind:         ReminderServiceDesk,
		Location:     "Bloco A",
		Room:         "3C",
		ScheduleText: "14/07/2025 13:00",
		SendAt:       time.Date(2025, 7, 14, 13, 0, 0, 0, time.UTC),
	})

	for _, want := range []string{
		"Lembrete ShadowDesk 📌",
		"*Solicitante: Ana Souza*",
		"_Trocar monitor_",
		"*Local:* _Bloco A_ *Sala:* _3C_",
		"*Agendado para:* _14/07/2025 13:00_",
		"📅 segunda-feira, 14 de jul. de 2025",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatReminderMessageGeneral(t *testing.T) {
	msg := FormatReminderMessage(Reminder{
		Title:  "Backup semanal",
		Kind:   ReminderGeneral,
		SendAt: time.Date(2025, 7, 12, 8, 0, 0, 0, time.UTC),
	})

	if !strings.Contains(msg, "*Backup semanal*") {
		t.Errorf("missing title:\n%s", msg)
	}
	if strings.Contains(msg, "Agendado para") || strings.Contains(msg, "*Local:*") {
		t.Errorf("general reminder must use the compact template:\n%s", msg)
	}
	if !strings.Contains(msg, "📅 sábado, 12 de jul. de 2025") {
		t.Errorf("missing date line:\n%s", msg)
	}
}

func TestFormatWeatherAlertMessage(t *testing.T) {
	alerts := []TriggeredAlert{
		{Type: AlertTemperature, Value: 36, Threshold: 35},
		{Type: AlertRain, Value: 80, Threshold: 70},
	}
	for i := range alerts {
		alerts[i].Message = FormatAlertLine(alerts[i])
	}

	msg := FormatWeatherAlertMessage(alerts, "Marília-SP")

	for _, want := range []string{
		"⚠️ *Alerta Meteorológico ShadowDesk*",
		"🌡️ *Alerta de Temperatura Alta*",
		"Temperatura atual: 36°C (limite: 35°C)",
		"🌧️ *Alerta de Precipitação*",
		"Chance de chuva: 80% (limite: 70%)",
		"📍 Marília-SP",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
