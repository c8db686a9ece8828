package main

import "testing"

const listFixture = `
<html><body>
<table id="GridDatatable">
<tbody>
<tr>
  <td>#12345</td><td>Alta</td><td>Nova</td><td>x</td>
  <td>Maria Silva</td><td>FCL - Bloco A</td><td>Suporte</td>
  <td>Manutenção de Impressora</td><td>27/12/2025 17:31</td>
</tr>
<tr>
  <td>12346</td><td>Baixa</td><td>Nova</td>
</tr>
<tr>
  <td>sem numero</td><td>Alta</td><td>Nova</td><td>x</td><td>y</td>
</tr>
<tr>
  <td>só duas</td><td>células</td>
</tr>
</tbody>
</table>
</body></html>`

func TestParseTicketList(t *testing.T) {
	tickets, err := ParseTicketList(listFixture)
	if err != nil {
		t.Fatalf("ParseTicketList failed: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets (malformed rows skipped), got %d", len(tickets))
	}

	first := tickets[0]
	if first.Number != "12345" {
		t.Errorf("number not digit-stripped: %q", first.Number)
	}
	if first.Priority != "Alta" || first.Status != "Nova" {
		t.Errorf("priority/status wrong: %q/%q", first.Priority, first.Status)
	}
	if first.Requester != "Maria Silva" || first.Location != "FCL - Bloco A" {
		t.Errorf("requester/location wrong: %q/%q", first.Requester, first.Location)
	}
	if first.Service != "Manutenção de Impressora" {
		t.Errorf("service should come from column 7: %q", first.Service)
	}
	if first.OpenedAt != "27/12/2025 17:31" {
		t.Errorf("opening time should be the last cell: %q", first.OpenedAt)
	}

	// Three-cell row: still a valid ticket, missing columns stay empty.
	second := tickets[1]
	if second.Number != "12346" || second.Requester != "" {
		t.Errorf("short row parsed wrong: %+v", second)
	}
}

const detailFixture = `
<html><body>
<div>CHAMADO #12345 ABERTURA 27/12/2025 17:31</div>
<form>
  <div class="form-group">
    <label for="fld_tipo">Tipo de Serviço</label>
    <input id="fld_tipo" type="text" value="Manutenção">
  </div>
  <div class="form-group">
    <label>Sala</label>
    <span>14-A</span>
  </div>
  <div class="row">
    <div class="col"><label>Celular</label></div>
    <div class="col"><input type="text" value="(14) 99111-2222"></div>
  </div>
  <div class="form-group">
    <label>Descrição do Serviço</label>
    <p id="readonly_descricao">Computador não liga após queda de energia</p>
  </div>
  <div class="form-group">
    <label>Ramal</label>
    <input type="text" value="323">
  </div>
  <div class="form-group">
    <label for="hid_id">Patrimônio</label>
    <input id="hid_id" type="hidden" value="323">
  </div>
</form>
<table><tr><td data-label="Data e Horário">14/07/2025 às 13:00</td></tr></table>
</body></html>`

func TestParseDetailFields(t *testing.T) {
	fields := ParseDetailFields(detailFixture)

	want := map[string]string{
		detailServiceType:  "Manutenção",
		detailRoom:         "14-A",
		detailCellPhone:    "14991112222",
		detailDescription:  "Computador não liga após queda de energia",
		detailScheduleText: "14/07/2025 às 13:00",
		detailOpenedDetail: "27/12/2025 17:31",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, fields[k], v)
		}
	}

	// The hidden-input sentinel must never surface, neither through the
	// explicit for= linkage nor as a visible field value.
	if _, ok := fields[detailAssetTag]; ok {
		t.Errorf("asset tag bound to hidden sentinel input: %q", fields[detailAssetTag])
	}
	if _, ok := fields[detailExtension]; ok {
		t.Errorf("sentinel value leaked into extension: %q", fields[detailExtension])
	}

	// Absent fields are omitted, not empty strings.
	if v, ok := fields[detailEmail]; ok {
		t.Errorf("email should be absent, got %q", v)
	}
}

func TestHasFilterMismatch(t *testing.T) {
	cases := []struct {
		name     string
		status   string
		mismatch bool
	}{
		{"nova", "Nova", false},
		{"in progress", "Em Atendimento", true},
		{"waiting", "Aguardando Peça", true},
		{"closed", "Fechado", true},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HasFilterMismatch([]Ticket{{Number: "1", Status: tc.status}})
			if got != tc.mismatch {
				t.Errorf("HasFilterMismatch(%q) = %v, want %v", tc.status, got, tc.mismatch)
			}
		})
	}
}
