package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Dispatcher drains the notification queue and the reminder collection on
// independent timers. Each consumer carries an in-flight guard so a slow
// batch can overrun its nominal period without a second run piling on top.
type Dispatcher struct {
	db    *sql.DB
	cfg   Config
	send  func(to, message string) bool
	ready func() bool
	now   func() time.Time

	queueBusy    atomic.Bool
	reminderBusy atomic.Bool
}

func NewDispatcher(db *sql.DB, cfg Config, wpp *WPPClient) *Dispatcher {
	return &Dispatcher{
		db:    db,
		cfg:   cfg,
		send:  wpp.Send,
		ready: wpp.Connected,
		now:   time.Now,
	}
}

// Start schedules both consumers and stops them when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(fmt.Sprintf("*/%d * * * * *", d.cfg.QueuePeriodSec), d.RunQueue)
	if err != nil {
		log.Fatalf("Invalid queue consumer schedule: %v", err)
	}
	_, err = c.AddFunc(fmt.Sprintf("*/%d * * * * *", d.cfg.ReminderPeriodSec), d.RunReminders)
	if err != nil {
		log.Fatalf("Invalid reminder consumer schedule: %v", err)
	}
	c.Start()
	log.Printf("Dispatcher started (queue every %ds, reminders every %ds)",
		d.cfg.QueuePeriodSec, d.cfg.ReminderPeriodSec)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
}

// RunQueue delivers all pending queue items. Items failing delivery go to
// "error" and stay there for an operator; there is no automatic retry. When
// the gateway is not connected the whole batch is left pending for the next
// tick instead.
func (d *Dispatcher) RunQueue() {
	if !d.queueBusy.CompareAndSwap(false, true) {
		return
	}
	defer d.queueBusy.Store(false)

	items, err := PendingNotifications(d.db)
	if err != nil {
		log.Printf("Error fetching pending notifications: %v", err)
		return
	}
	if len(items) == 0 {
		return
	}

	if !d.ready() {
		log.Printf("Gateway not connected, leaving %d notifications pending", len(items))
		return
	}

	for _, item := range items {
		if d.send(item.Recipient, item.Message) {
			if err := MarkNotificationSent(d.db, item.ID); err != nil {
				log.Printf("Error marking notification %s sent: %v", item.ID, err)
			}
			continue
		}
		if err := MarkNotificationError(d.db, item.ID, "gateway refused delivery"); err != nil {
			log.Printf("Error marking notification %s failed: %v", item.ID, err)
		}
	}
}

// RunReminders delivers every unsent reminder whose send time has passed.
// Each reminder is claimed with an atomic sent-flag flip before sending, so
// a racing delivery path can never double-send; a failed send releases the
// claim for the next tick.
func (d *Dispatcher) RunReminders() {
	if !d.reminderBusy.CompareAndSwap(false, true) {
		return
	}
	defer d.reminderBusy.Store(false)

	due, err := DueReminders(d.db, d.now())
	if err != nil {
		log.Printf("Error fetching due reminders: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	log.Printf("Found %d due reminders", len(due))

	if !d.ready() {
		log.Println("Gateway not connected, reminders stay due")
		return
	}

	for _, r := range due {
		if r.Phone == "" {
			// Web-notification-only reminder; the dashboard shows it.
			log.Printf("Reminder %s has no phone, skipping WhatsApp delivery", r.ID)
			continue
		}

		claimed, err := ClaimReminder(d.db, r.ID, d.now())
		if err != nil {
			log.Printf("Error claiming reminder %s: %v", r.ID, err)
			continue
		}
		if !claimed {
			continue
		}

		if d.send(r.Phone, FormatReminderMessage(r)) {
			log.Printf("Reminder %s sent to %s", r.ID, r.Phone)
			continue
		}

		log.Printf("Failed to send reminder %s to %s, releasing claim", r.ID, r.Phone)
		if err := ReleaseReminder(d.db, r.ID); err != nil {
			log.Printf("Error releasing reminder %s: %v", r.ID, err)
		}
	}
}
