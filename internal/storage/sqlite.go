package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tazhate/fintrack/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_categories_user_id ON categories(user_id)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			category_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			date DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (category_id) REFERENCES categories(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date)`,
		`CREATE TABLE IF NOT EXISTS reminders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			frequency TEXT NOT NULL,
			time_of_day TEXT NOT NULL DEFAULT '09:00',
			day_of_week INTEGER DEFAULT 0,
			day_of_month INTEGER DEFAULT 0,
			expression TEXT DEFAULT '',
			is_active INTEGER DEFAULT 1,
			last_fired DATETIME,
			next_fire_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_user_active ON reminders(user_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_reminders_next_fire ON reminders(next_fire_at)`,
		`CREATE TABLE IF NOT EXISTS reminder_templates (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			frequency TEXT NOT NULL,
			time_of_day TEXT NOT NULL DEFAULT '09:00',
			day_of_week INTEGER DEFAULT 0,
			day_of_month INTEGER DEFAULT 0,
			expression TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			action_url TEXT DEFAULT '',
			is_read INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, is_read)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Users ===

func (s *Storage) CreateUser(u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, name) VALUES (?, ?, ?)`,
		u.ID, u.Email, u.Name,
	)
	if err != nil {
		return err
	}
	u.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetUser(id string) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRow(
		`SELECT id, email, name, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (s *Storage) GetUserByEmail(email string) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRow(
		`SELECT id, email, name, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// === Categories ===

func (s *Storage) CreateCategory(c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO categories (id, user_id, name, type) VALUES (?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.Type,
	)
	if err != nil {
		return err
	}
	c.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetCategory(id string) (*domain.Category, error) {
	c := &domain.Category{}
	err := s.db.QueryRow(
		`SELECT id, user_id, name, type, created_at FROM categories WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *Storage) ListCategoriesByUser(userID string) ([]*domain.Category, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, type, created_at FROM categories WHERE user_id = ? ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		c := &domain.Category{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Storage) DeleteCategory(id string) error {
	_, err := s.db.Exec(`DELETE FROM categories WHERE id = ?`, id)
	return err
}

// === Transactions ===

func (s *Storage) CreateTransaction(t *domain.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO transactions (id, user_id, category_id, type, amount, description, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.CategoryID, t.Type, t.Amount.String(), t.Description, t.Date,
	)
	if err != nil {
		return err
	}
	t.CreatedAt = time.Now()
	return nil
}

// ListTransactionsByRange returns a user's transactions with date in
// [from, to], joined with their category names, ordered by date.
func (s *Storage) ListTransactionsByRange(userID string, from, to time.Time) ([]*domain.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.user_id, t.category_id, t.type, t.amount, t.description, t.date, t.created_at, c.name
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ? AND t.date >= ? AND t.date <= ?
		 ORDER BY t.date ASC, t.created_at ASC`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		t := &domain.Transaction{}
		var amount string
		if err := rows.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Type, &amount, &t.Description, &t.Date, &t.CreatedAt, &t.CategoryName); err != nil {
			return nil, err
		}
		t.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount for transaction %s: %w", t.ID, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *Storage) GetTransaction(id string) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	var amount string
	err := s.db.QueryRow(
		`SELECT id, user_id, category_id, type, amount, description, date, created_at
		 FROM transactions WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Type, &amount, &t.Description, &t.Date, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount for transaction %s: %w", t.ID, err)
	}
	return t, nil
}

func (s *Storage) DeleteTransaction(id string) error {
	_, err := s.db.Exec(`DELETE FROM transactions WHERE id = ?`, id)
	return err
}

// === Reminders ===

const reminderColumns = `id, user_id, kind, title, message, frequency, time_of_day, day_of_week, day_of_month, expression, is_active, last_fired, next_fire_at, created_at`

func scanReminder(row interface{ Scan(...any) error }) (*domain.Reminder, error) {
	r := &domain.Reminder{}
	err := row.Scan(
		&r.ID, &r.UserID, &r.Kind, &r.Title, &r.Message,
		&r.Rule.Frequency, &r.Rule.TimeOfDay, &r.Rule.DayOfWeek, &r.Rule.DayOfMonth, &r.Rule.Expression,
		&r.Active, &r.LastFired, &r.NextFireAt, &r.CreatedAt,
	)
	return r, err
}

func (s *Storage) CreateReminder(r *domain.Reminder) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO reminders (id, user_id, kind, title, message, frequency, time_of_day, day_of_week, day_of_month, expression, is_active, next_fire_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Kind, r.Title, r.Message,
		r.Rule.Frequency, r.Rule.TimeOfDay, r.Rule.DayOfWeek, r.Rule.DayOfMonth, r.Rule.Expression,
		r.Active, r.NextFireAt,
	)
	if err != nil {
		return err
	}
	r.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetReminder(id string) (*domain.Reminder, error) {
	r, err := scanReminder(s.db.QueryRow(
		`SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func (s *Storage) ListRemindersByUser(userID string) ([]*domain.Reminder, error) {
	return s.listReminders(
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = ? ORDER BY created_at ASC`,
		userID,
	)
}

func (s *Storage) ListActiveReminders() ([]*domain.Reminder, error) {
	return s.listReminders(
		`SELECT ` + reminderColumns + ` FROM reminders WHERE is_active = 1`,
	)
}

func (s *Storage) ListDueReminders(now time.Time) ([]*domain.Reminder, error) {
	return s.listReminders(
		`SELECT `+reminderColumns+` FROM reminders WHERE is_active = 1 AND next_fire_at IS NOT NULL AND next_fire_at <= ?`,
		now,
	)
}

func (s *Storage) listReminders(query string, args ...any) ([]*domain.Reminder, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func (s *Storage) UpdateReminder(r *domain.Reminder) error {
	_, err := s.db.Exec(
		`UPDATE reminders SET kind = ?, title = ?, message = ?, frequency = ?, time_of_day = ?, day_of_week = ?, day_of_month = ?, expression = ?, is_active = ?, next_fire_at = ? WHERE id = ?`,
		r.Kind, r.Title, r.Message,
		r.Rule.Frequency, r.Rule.TimeOfDay, r.Rule.DayOfWeek, r.Rule.DayOfMonth, r.Rule.Expression,
		r.Active, r.NextFireAt, r.ID,
	)
	return err
}

func (s *Storage) UpdateReminderFired(id string, firedAt time.Time) error {
	_, err := s.db.Exec(`UPDATE reminders SET last_fired = ? WHERE id = ?`, firedAt, id)
	return err
}

func (s *Storage) UpdateReminderNextFire(id string, next time.Time) error {
	_, err := s.db.Exec(`UPDATE reminders SET next_fire_at = ? WHERE id = ?`, next, id)
	return err
}

func (s *Storage) DeleteReminder(id string) error {
	_, err := s.db.Exec(`DELETE FROM reminders WHERE id = ?`, id)
	return err
}

// === Reminder templates ===

func (s *Storage) CreateReminderTemplate(t *domain.ReminderTemplate) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO reminder_templates (id, kind, title, message, frequency, time_of_day, day_of_week, day_of_month, expression)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Kind, t.Title, t.Message,
		t.Rule.Frequency, t.Rule.TimeOfDay, t.Rule.DayOfWeek, t.Rule.DayOfMonth, t.Rule.Expression,
	)
	if err != nil {
		return err
	}
	t.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetReminderTemplate(id string) (*domain.ReminderTemplate, error) {
	t := &domain.ReminderTemplate{}
	err := s.db.QueryRow(
		`SELECT id, kind, title, message, frequency, time_of_day, day_of_week, day_of_month, expression, created_at
		 FROM reminder_templates WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.Kind, &t.Title, &t.Message,
		&t.Rule.Frequency, &t.Rule.TimeOfDay, &t.Rule.DayOfWeek, &t.Rule.DayOfMonth, &t.Rule.Expression,
		&t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *Storage) ListReminderTemplates() ([]*domain.ReminderTemplate, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, title, message, frequency, time_of_day, day_of_week, day_of_month, expression, created_at
		 FROM reminder_templates ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*domain.ReminderTemplate
	for rows.Next() {
		t := &domain.ReminderTemplate{}
		if err := rows.Scan(&t.ID, &t.Kind, &t.Title, &t.Message,
			&t.Rule.Frequency, &t.Rule.TimeOfDay, &t.Rule.DayOfWeek, &t.Rule.DayOfMonth, &t.Rule.Expression,
			&t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// === Notifications ===

func (s *Storage) CreateNotification(n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO notifications (id, user_id, kind, title, message, action_url)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Kind, n.Title, n.Message, n.ActionURL,
	)
	if err != nil {
		return err
	}
	n.CreatedAt = time.Now()
	return nil
}

func (s *Storage) ListNotificationsByUser(userID string, unreadOnly bool) ([]*domain.Notification, error) {
	query := `SELECT id, user_id, kind, title, message, action_url, is_read, created_at
		 FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.ActionURL, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Storage) GetNotification(id string) (*domain.Notification, error) {
	n := &domain.Notification{}
	err := s.db.QueryRow(
		`SELECT id, user_id, kind, title, message, action_url, is_read, created_at
		 FROM notifications WHERE id = ?`,
		id,
	).Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.ActionURL, &n.Read, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return n, err
}

func (s *Storage) MarkNotificationRead(id string) error {
	_, err := s.db.Exec(`UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	return err
}

func (s *Storage) DeleteNotification(id string) error {
	_, err := s.db.Exec(`DELETE FROM notifications WHERE id = ?`, id)
	return err
}
