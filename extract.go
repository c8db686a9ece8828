package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// sentinelValue is the portal's hidden record id that leaks into label
// lookups when a label mis-binds to the hidden input. Any field resolving to
// it is treated as absent.
const sentinelValue = "323"

var openedHeaderRegex = regexp.MustCompile(`(?i)ABERTURA\s+([0-9]{2}/[0-9]{2}/[0-9]{4}\s+[0-9]{2}:[0-9]{2})`)

// ParseTicketList extracts ticket summaries from list-page HTML. Rows with
// fewer than three cells or no digits in the number cell are malformed and
// skipped, not errors.
func ParseTicketList(html string) ([]Ticket, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing list HTML: %w", err)
	}

	var tickets []Ticket
	doc.Find(listTableSelector + " tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		texts := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(c.Text()))
		})

		number := digitsOnly(texts[0])
		if number == "" {
			return
		}

		t := Ticket{
			Number:    number,
			Priority:  cellAt(texts, 1),
			Status:    cellAt(texts, 2),
			Requester: cellAt(texts, 4),
			Location:  cellAt(texts, 5),
			Service:   cellAt(texts, 7),
			OpenedAt:  texts[len(texts)-1],
		}
		if t.Status == "" {
			t.Status = "Nova"
		}
		if t.Service == "" {
			t.Service = cellAt(texts, 6)
		}
		tickets = append(tickets, t)
	})

	return tickets, nil
}

// ParseDetailFields extracts the labeled detail fields from a ticket page.
// Absent fields are omitted from the map, never returned as empty strings.
func ParseDetailFields(html string) map[string]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return map[string]string{}
	}

	byLabel := func(labels ...string) string {
		for _, l := range labels {
			if v := extractByLabel(doc, l); v != "" {
				return v
			}
		}
		return ""
	}

	fields := map[string]string{
		detailServiceType:     byLabel("Tipo de Serviço"),
		detailInstallLocation: byLabel("Local de Instalação", "Local"),
		detailDescription:     byLabel("Descrição do Serviço", "Descrição"),
		detailAssetTag:        byLabel("Patrimônio"),
		detailRoom:            byLabel("Sala"),
		detailExtension:       byLabel("Ramal"),
		detailCellPhone:       digitsOnly(byLabel("Celular")),
		detailEmail:           byLabel("E-mail"),
		detailScheduleText: byLabel("Data e Horário", "Melhor data",
			"horário para atendimento", "Agendamento"),
	}

	// The opening timestamp lives in the page header, not behind a label.
	if m := openedHeaderRegex.FindStringSubmatch(doc.Find("body").Text()); m != nil {
		fields[detailOpenedDetail] = m[1]
	}

	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	return fields
}

// extractByLabel resolves a label's associated value through a fallback
// chain: data-label cells, explicit for= linkage, then DOM proximity.
func extractByLabel(doc *goquery.Document, labelText string) string {
	want := strings.ToLower(labelText)

	// Read-only table views carry the label as a td attribute.
	var fromData string
	doc.Find("td[data-label]").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		attr, _ := td.Attr("data-label")
		if strings.Contains(strings.ToLower(attr), want) {
			fromData = cleanValue(strings.TrimSpace(td.Text()))
			return fromData == ""
		}
		return true
	})
	if fromData != "" {
		return fromData
	}

	var label *goquery.Selection
	doc.Find("label").EachWithBreak(func(_ int, l *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(strings.TrimSpace(l.Text())), want) {
			label = l
			return false
		}
		return true
	})
	if label == nil {
		return ""
	}

	// Explicit linkage wins.
	if id, ok := label.Attr("for"); ok && id != "" {
		if v := elementValue(doc.Find(fmt.Sprintf("[id=%q]", id)).First()); v != "" {
			return v
		}
	}

	if v := elementValue(label.Next()); v != "" {
		return v
	}

	// Bootstrap column layout: value input lives in the parent's sibling.
	if container := label.Parent().Next(); container.Length() > 0 {
		el := container.Find(`input:not([type="hidden"]), textarea, p[id^="readonly_"], div.form-control, span`).First()
		if v := elementValue(el); v != "" {
			return v
		}
	}

	container := label.Closest(".form-group")
	if container.Length() == 0 {
		container = label.Parent().Parent()
	}
	if container.Length() > 0 {
		el := container.Find(`p[id^="readonly_"], textarea, input:not([type="hidden"])`).First()
		if v := elementValue(el); v != "" {
			return v
		}
	}

	return ""
}

// elementValue reads a form field's value or an element's text, ignoring
// hidden inputs and the sentinel artifact.
func elementValue(el *goquery.Selection) string {
	if el == nil || el.Length() == 0 {
		return ""
	}
	switch goquery.NodeName(el) {
	case "input":
		if t, _ := el.Attr("type"); t == "hidden" {
			return ""
		}
		v, _ := el.Attr("value")
		return cleanValue(strings.TrimSpace(v))
	case "textarea":
		return cleanValue(strings.TrimSpace(el.Text()))
	case "select":
		opt := el.Find("option[selected]").First()
		return cleanValue(strings.TrimSpace(opt.Text()))
	}
	return cleanValue(strings.TrimSpace(el.Text()))
}

func cleanValue(v string) string {
	if v == sentinelValue {
		return ""
	}
	return v
}

func cellAt(texts []string, i int) string {
	if i < len(texts) {
		return texts[i]
	}
	return ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasFilterMismatch reports whether a scraped batch contains tickets the
// status filter should have excluded. When it does, the filter silently
// dropped and the whole cycle must be aborted — processing would spam "new
// ticket" alerts and mass-delete the store.
func HasFilterMismatch(tickets []Ticket) bool {
	for _, t := range tickets {
		s := strings.ToLower(t.Status)
		if strings.Contains(s, "atendimento") || strings.Contains(s, "aguardando") || strings.Contains(s, "fechado") {
			return true
		}
	}
	return false
}
