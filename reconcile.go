package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// Reconciler converges the persisted ticket set to the portal's visible set,
// minus ignored numbers. The in-memory known set is a cache of the store,
// rehydrated once at startup and updated in the same step as every store
// mutation so the two never diverge silently.
type Reconciler struct {
	db  *sql.DB
	cfg Config

	known   map[string]bool
	ignored map[string]bool

	// fetchDetail is the scraper's detail extraction; swapped for a stub in
	// tests. A nil return map is fine — details are best-effort.
	fetchDetail func(number string) (map[string]string, error)

	now func() time.Time
}

const (
	massDeleteMinCount = 5
	massDeleteFraction = 0.2
)

func NewReconciler(db *sql.DB, cfg Config, fetchDetail func(string) (map[string]string, error)) (*Reconciler, error) {
	known, err := LoadTicketNumbers(db)
	if err != nil {
		return nil, fmt.Errorf("loading known tickets: %w", err)
	}
	ignored, err := LoadIgnoredNumbers(db)
	if err != nil {
		return nil, fmt.Errorf("loading ignored tickets: %w", err)
	}
	log.Printf("Loaded %d active and %d ignored tickets", len(known), len(ignored))

	return &Reconciler{
		db:          db,
		cfg:         cfg,
		known:       known,
		ignored:     ignored,
		fetchDetail: fetchDetail,
		now:         time.Now,
	}, nil
}

// KnownNumbers returns a copy of the known set; for logging and tests.
func (r *Reconciler) KnownNumbers() map[string]bool {
	out := make(map[string]bool, len(r.known))
	for n := range r.known {
		out[n] = true
	}
	return out
}

// Sync runs one reconciliation cycle against a freshly scraped ticket list.
// Deletions are applied before creations; per-ticket failures are captured
// and the batch continues.
func (r *Reconciler) Sync(ctx context.Context, scraped []Ticket) SyncResult {
	result := SyncResult{Scraped: len(scraped)}

	current := make(map[string]Ticket, len(scraped))
	for _, t := range scraped {
		current[t.Number] = t
	}

	// 1. Disappeared: in the store but no longer on the portal.
	var disappeared []string
	for n := range r.known {
		if _, ok := current[n]; !ok {
			disappeared = append(disappeared, n)
		}
	}

	if r.isMassDeletion(len(disappeared)) {
		log.Printf("WARNING: mass deletion detected (%d tickets) — skipping deletion this cycle", len(disappeared))
	} else {
		for _, n := range disappeared {
			if err := DeleteTicket(r.db, n); err != nil {
				log.Printf("Failed to delete ticket #%s: %v", n, err)
				result.Errors = append(result.Errors, fmt.Sprintf("delete #%s: %v", n, err))
				continue
			}
			delete(r.known, n)
			result.Deleted++
			log.Printf("Deleted ticket #%s (disappeared from portal)", n)
		}
	}

	// 2+3. Appeared: partition against the ignore list, then process
	// sequentially — detail extraction reuses the one shared browser page.
	for _, t := range scraped {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, ctx.Err().Error())
			break
		}
		if r.known[t.Number] {
			result.Unchanged++
			continue
		}
		if r.ignored[t.Number] {
			log.Printf("Skipping ticket #%s (on the ignore list)", t.Number)
			result.Ignored++
			continue
		}

		log.Printf("New ticket #%s: %s | %s", t.Number, t.Requester, t.Service)

		if r.fetchDetail != nil {
			details, err := r.fetchDetail(t.Number)
			if err != nil {
				// Partial data is acceptable; the summary alone still gets
				// persisted and re-extraction can happen manually.
				log.Printf("Detail extraction failed for #%s: %v", t.Number, err)
				result.Errors = append(result.Errors, fmt.Sprintf("details #%s: %v", t.Number, err))
			}
			t.MergeDetails(details)
		}

		t.ScrapedAt = r.now()
		if err := UpsertTicket(r.db, t); err != nil {
			log.Printf("Failed to save ticket #%s: %v", t.Number, err)
			result.Errors = append(result.Errors, fmt.Sprintf("save #%s: %v", t.Number, err))
			continue
		}

		r.notifyNewTicket(t)

		r.known[t.Number] = true
		result.Created++
	}

	return result
}

func (r *Reconciler) isMassDeletion(count int) bool {
	if r.cfg.NoMassDeleteGuard {
		return false
	}
	return count > massDeleteMinCount && float64(count) > float64(len(r.known))*massDeleteFraction
}

// notifyNewTicket enqueues one queue item per eligible recipient and creates
// auto-reminders for tickets carrying a future scheduling date. Failures are
// logged; the ticket itself is already persisted.
func (r *Reconciler) notifyNewTicket(t Ticket) {
	recipients, err := NotificationRecipients(r.db)
	if err != nil {
		log.Printf("Failed to load notification recipients: %v", err)
		return
	}
	if len(recipients) == 0 {
		log.Println("No users with ServiceDesk WhatsApp notifications enabled")
		return
	}

	message := FormatTicketMessage(t, r.cfg.PortalURL)
	queued, err := EnqueueNotifications(r.db, recipients, message, "serviceDesk_new_ticket", t.Number)
	if err != nil {
		log.Printf("Failed to enqueue notifications for #%s: %v", t.Number, err)
	} else if queued > 0 {
		log.Printf("Queued notification for %d users", queued)
	}

	r.autoCreateReminders(t, recipients)
}

// RefreshIgnored reloads the ignore list from the store; the dashboard can
// add entries between cycles.
func (r *Reconciler) RefreshIgnored() {
	ignored, err := LoadIgnoredNumbers(r.db)
	if err != nil {
		log.Printf("Failed to refresh ignore list: %v", err)
		return
	}
	r.ignored = ignored
}
