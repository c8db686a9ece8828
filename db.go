package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS tickets (
		number           TEXT PRIMARY KEY,
		priority         TEXT DEFAULT '',
		status           TEXT DEFAULT '',
		requester        TEXT DEFAULT '',
		location         TEXT DEFAULT '',
		service          TEXT DEFAULT '',
		opened_at        TEXT DEFAULT '',
		service_type     TEXT DEFAULT '',
		install_location TEXT DEFAULT '',
		description      TEXT DEFAULT '',
		asset_tag        TEXT DEFAULT '',
		room             TEXT DEFAULT '',
		extension        TEXT DEFAULT '',
		cell_phone       TEXT DEFAULT '',
		email            TEXT DEFAULT '',
		schedule_text    TEXT DEFAULT '',
		opened_detail    TEXT DEFAULT '',
		viewed_by        TEXT DEFAULT '[]',
		hidden_for       TEXT DEFAULT '[]',
		scraped_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS ignored_tickets (
		number     TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS notification_queue (
		id            TEXT PRIMARY KEY,
		recipient     TEXT NOT NULL,
		message       TEXT NOT NULL,
		status        TEXT DEFAULT 'pending',
		type          TEXT DEFAULT '',
		ticket_number TEXT DEFAULT '',
		error         TEXT DEFAULT '',
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
		sent_at       DATETIME,
		failed_at     DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_queue_status ON notification_queue(status);

	CREATE TABLE IF NOT EXISTS reminders (
		id            TEXT PRIMARY KEY,
		phone         TEXT DEFAULT '',
		title         TEXT NOT NULL,
		description   TEXT DEFAULT '',
		send_at       DATETIME NOT NULL,
		display_time  TEXT DEFAULT '',
		sent          INTEGER DEFAULT 0,
		sent_at       DATETIME,
		kind          TEXT DEFAULT 'general',
		requester     TEXT DEFAULT '',
		location      TEXT DEFAULT '',
		room          TEXT DEFAULT '',
		schedule_text TEXT DEFAULT '',
		ticket_number TEXT DEFAULT '',
		auto_created  INTEGER DEFAULT 0,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(sent, send_at);

	CREATE TABLE IF NOT EXISTS weather_alert_prefs (
		user_id         TEXT PRIMARY KEY,
		phone           TEXT DEFAULT '',
		temperature     TEXT DEFAULT '{}',
		wind            TEXT DEFAULT '{}',
		rain            TEXT DEFAULT '{}',
		humidity        TEXT DEFAULT '{}',
		last_alert_sent TEXT DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS users (
		id                TEXT PRIMARY KEY,
		name              TEXT DEFAULT '',
		phone             TEXT DEFAULT '',
		servicedesk_alert INTEGER DEFAULT 0
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return db, nil
}

// UpsertTicket creates the ticket or merges fields into an existing row.
// Merge semantics: empty incoming fields never overwrite stored values, and
// viewer-tracking fields (viewed_by, hidden_for) are never touched here —
// those belong to the dashboard.
func UpsertTicket(db *sql.DB, t Ticket) error {
	_, err := db.Exec(`
		INSERT INTO tickets (
			number, priority, status, requester, location, service, opened_at,
			service_type, install_location, description, asset_tag, room,
			extension, cell_phone, email, schedule_text, opened_detail, scraped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			priority         = COALESCE(NULLIF(excluded.priority, ''), tickets.priority),
			status           = COALESCE(NULLIF(excluded.status, ''), tickets.status),
			requester        = COALESCE(NULLIF(excluded.requester, ''), tickets.requester),
			location         = COALESCE(NULLIF(excluded.location, ''), tickets.location),
			service          = COALESCE(NULLIF(excluded.service, ''), tickets.service),
			opened_at        = COALESCE(NULLIF(excluded.opened_at, ''), tickets.opened_at),
			service_type     = COALESCE(NULLIF(excluded.service_type, ''), tickets.service_type),
			install_location = COALESCE(NULLIF(excluded.install_location, ''), tickets.install_location),
			description      = COALESCE(NULLIF(excluded.description, ''), tickets.description),
			asset_tag        = COALESCE(NULLIF(excluded.asset_tag, ''), tickets.asset_tag),
			room             = COALESCE(NULLIF(excluded.room, ''), tickets.room),
			extension        = COALESCE(NULLIF(excluded.extension, ''), tickets.extension),
			cell_phone       = COALESCE(NULLIF(excluded.cell_phone, ''), tickets.cell_phone),
			email            = COALESCE(NULLIF(excluded.email, ''), tickets.email),
			schedule_text    = COALESCE(NULLIF(excluded.schedule_text, ''), tickets.schedule_text),
			opened_detail    = COALESCE(NULLIF(excluded.opened_detail, ''), tickets.opened_detail),
			scraped_at       = excluded.scraped_at`,
		t.Number, t.Priority, t.Status, t.Requester, t.Location, t.Service, t.OpenedAt,
		t.ServiceType, t.InstallLocation, t.Description, t.AssetTag, t.Room,
		t.Extension, t.CellPhone, t.Email, t.ScheduleText, t.OpenedDetail, t.ScrapedAt,
	)
	return err
}

func GetTicket(db *sql.DB, number string) (Ticket, error) {
	var t Ticket
	var viewedBy, hiddenFor string
	err := db.QueryRow(`
		SELECT number, priority, status, requester, location, service, opened_at,
		       service_type, install_location, description, asset_tag, room,
		       extension, cell_phone, email, schedule_text, opened_detail,
		       viewed_by, hidden_for, scraped_at
		FROM tickets WHERE number = ?`, number).Scan(
		&t.Number, &t.Priority, &t.Status, &t.Requester, &t.Location, &t.Service, &t.OpenedAt,
		&t.ServiceType, &t.InstallLocation, &t.Description, &t.AssetTag, &t.Room,
		&t.Extension, &t.CellPhone, &t.Email, &t.ScheduleText, &t.OpenedDetail,
		&viewedBy, &hiddenFor, &t.ScrapedAt,
	)
	if err != nil {
		return Ticket{}, err
	}
	_ = json.Unmarshal([]byte(viewedBy), &t.ViewedBy)
	_ = json.Unmarshal([]byte(hiddenFor), &t.HiddenFor)
	return t, nil
}

func DeleteTicket(db *sql.DB, number string) error {
	_, err := db.Exec(`DELETE FROM tickets WHERE number = ?`, number)
	return err
}

func TicketExists(db *sql.DB, number string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM tickets WHERE number = ?`, number).Scan(&count)
	return count > 0, err
}

// LoadTicketNumbers returns all persisted ticket numbers; used to rehydrate
// the reconciler's known set at startup.
func LoadTicketNumbers(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT number FROM tickets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	numbers := make(map[string]bool)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers[n] = true
	}
	return numbers, rows.Err()
}

func LoadIgnoredNumbers(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT number FROM ignored_tickets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	numbers := make(map[string]bool)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers[n] = true
	}
	return numbers, rows.Err()
}

func IgnoreTicket(db *sql.DB, number string) error {
	_, err := db.Exec(`INSERT OR IGNORE INTO ignored_tickets (number) VALUES (?)`, number)
	return err
}

// EnqueueNotifications inserts one pending queue item per recipient in a
// single transaction.
func EnqueueNotifications(db *sql.DB, recipients []User, message, itemType, ticketNumber string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO notification_queue (id, recipient, message, status, type, ticket_number)
		VALUES (?, ?, ?, 'pending', ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	queued := 0
	for _, u := range recipients {
		if u.Phone == "" {
			continue
		}
		if _, err := stmt.Exec(uuid.NewString(), u.Phone, message, itemType, ticketNumber); err != nil {
			return queued, err
		}
		queued++
	}

	return queued, tx.Commit()
}

func PendingNotifications(db *sql.DB) ([]QueueItem, error) {
	rows, err := db.Query(`
		SELECT id, recipient, message, status, type, ticket_number, error, created_at
		FROM notification_queue WHERE status = 'pending' ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QueueItem
	for rows.Next() {
		var item QueueItem
		if err := rows.Scan(&item.ID, &item.Recipient, &item.Message, &item.Status,
			&item.Type, &item.TicketNumber, &item.Error, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func MarkNotificationSent(db *sql.DB, id string) error {
	_, err := db.Exec(`
		UPDATE notification_queue SET status = 'sent', sent_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	return err
}

func MarkNotificationError(db *sql.DB, id, errMsg string) error {
	_, err := db.Exec(`
		UPDATE notification_queue SET status = 'error', error = ?, failed_at = CURRENT_TIMESTAMP
		WHERE id = ?`, errMsg, id)
	return err
}

func InsertReminder(db *sql.DB, r Reminder) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	auto := 0
	if r.AutoCreated {
		auto = 1
	}
	_, err := db.Exec(`
		INSERT INTO reminders (
			id, phone, title, description, send_at, display_time, sent, kind,
			requester, location, room, schedule_text, ticket_number, auto_created
		) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Phone, r.Title, r.Description, r.SendAt, r.DisplayTime, r.Kind,
		r.Requester, r.Location, r.Room, r.ScheduleText, r.TicketNumber, auto,
	)
	return err
}

// DueReminders returns unsent reminders whose send time has passed.
func DueReminders(db *sql.DB, now time.Time) ([]Reminder, error) {
	rows, err := db.Query(`
		SELECT id, phone, title, description, send_at, display_time, kind,
		       requester, location, room, schedule_text, ticket_number, auto_created
		FROM reminders WHERE sent = 0 AND send_at <= ? ORDER BY send_at`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []Reminder
	for rows.Next() {
		var r Reminder
		var auto int
		if err := rows.Scan(&r.ID, &r.Phone, &r.Title, &r.Description, &r.SendAt,
			&r.DisplayTime, &r.Kind, &r.Requester, &r.Location, &r.Room,
			&r.ScheduleText, &r.TicketNumber, &auto); err != nil {
			return nil, err
		}
		r.AutoCreated = auto == 1
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// ClaimReminder atomically flips sent from 0 to 1. It returns true only for
// the single caller that won the flip, which is what keeps the periodic
// scheduler and any direct-fire path from both delivering the same reminder.
func ClaimReminder(db *sql.DB, id string, now time.Time) (bool, error) {
	res, err := db.Exec(`
		UPDATE reminders SET sent = 1, sent_at = ? WHERE id = ? AND sent = 0`, now, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ReleaseReminder undoes a claim after a failed delivery so the next tick
// retries it.
func ReleaseReminder(db *sql.DB, id string) error {
	_, err := db.Exec(`UPDATE reminders SET sent = 0, sent_at = NULL WHERE id = ?`, id)
	return err
}

func ReminderExistsForTicket(db *sql.DB, phone, ticketNumber string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM reminders
		WHERE phone = ? AND ticket_number = ? AND kind = ?`,
		phone, ticketNumber, ReminderServiceDesk).Scan(&count)
	return count > 0, err
}

// NotificationRecipients returns users with ServiceDesk WhatsApp alerts
// enabled and a phone number on file.
func NotificationRecipients(db *sql.DB) ([]User, error) {
	rows, err := db.Query(`
		SELECT id, name, phone FROM users
		WHERE servicedesk_alert = 1 AND phone != ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Phone); err != nil {
			return nil, err
		}
		u.ServiceDeskAlert = true
		users = append(users, u)
	}
	return users, rows.Err()
}

func LoadWeatherPrefs(db *sql.DB) ([]WeatherPrefs, error) {
	rows, err := db.Query(`
		SELECT user_id, phone, temperature, wind, rain, humidity, last_alert_sent
		FROM weather_alert_prefs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []WeatherPrefs
	for rows.Next() {
		var p WeatherPrefs
		var temp, wind, rain, hum, last string
		if err := rows.Scan(&p.UserID, &p.Phone, &temp, &wind, &rain, &hum, &last); err != nil {
			return nil, err
		}
		for _, col := range []struct {
			raw string
			dst *ThresholdConfig
		}{
			{temp, &p.Temperature}, {wind, &p.Wind}, {rain, &p.Rain}, {hum, &p.Humidity},
		} {
			if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
				return nil, fmt.Errorf("prefs for user %s: %w", p.UserID, err)
			}
		}
		p.LastAlertSent = make(map[string]time.Time)
		var rawLast map[string]string
		if err := json.Unmarshal([]byte(last), &rawLast); err == nil {
			for k, v := range rawLast {
				if ts, err := time.Parse(time.RFC3339, v); err == nil {
					p.LastAlertSent[k] = ts
				}
			}
		}
		all = append(all, p)
	}
	return all, rows.Err()
}

// SaveWeatherPrefs writes a full preference row; used by tests and by the
// dashboard-facing tooling, not by the alert checker.
func SaveWeatherPrefs(db *sql.DB, p WeatherPrefs) error {
	temp, _ := json.Marshal(p.Temperature)
	wind, _ := json.Marshal(p.Wind)
	rain, _ := json.Marshal(p.Rain)
	hum, _ := json.Marshal(p.Humidity)
	last := map[string]string{}
	for k, v := range p.LastAlertSent {
		last[k] = v.Format(time.RFC3339)
	}
	lastJSON, _ := json.Marshal(last)

	_, err := db.Exec(`
		INSERT INTO weather_alert_prefs (user_id, phone, temperature, wind, rain, humidity, last_alert_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			phone = excluded.phone,
			temperature = excluded.temperature,
			wind = excluded.wind,
			rain = excluded.rain,
			humidity = excluded.humidity,
			last_alert_sent = excluded.last_alert_sent`,
		p.UserID, p.Phone, string(temp), string(wind), string(rain), string(hum), string(lastJSON),
	)
	return err
}

// UpdateLastAlertSent stamps every alert type included in a delivered message,
// not only the first.
func UpdateLastAlertSent(db *sql.DB, userID string, alertTypes []string, now time.Time) error {
	var raw string
	err := db.QueryRow(`SELECT last_alert_sent FROM weather_alert_prefs WHERE user_id = ?`, userID).Scan(&raw)
	if err != nil {
		return err
	}
	last := map[string]string{}
	_ = json.Unmarshal([]byte(raw), &last)
	for _, t := range alertTypes {
		last[t] = now.Format(time.RFC3339)
	}
	updated, err := json.Marshal(last)
	if err != nil {
		return err
	}
	_, err = db.Exec(`UPDATE weather_alert_prefs SET last_alert_sent = ? WHERE user_id = ?`, string(updated), userID)
	return err
}
