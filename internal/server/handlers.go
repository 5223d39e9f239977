package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tazhate/fintrack/internal/domain"
	"github.com/tazhate/fintrack/internal/export"
	"github.com/tazhate/fintrack/internal/scheduler"
)

type recurrenceJSON struct {
	Frequency  string `json:"frequency"`
	TimeOfDay  string `json:"timeOfDay,omitempty"`
	DayOfWeek  int    `json:"dayOfWeek,omitempty"`
	DayOfMonth int    `json:"dayOfMonth,omitempty"`
	Expression string `json:"expression,omitempty"`
}

func (r recurrenceJSON) toDomain() domain.Recurrence {
	return domain.Recurrence{
		Frequency:  domain.Frequency(r.Frequency),
		TimeOfDay:  r.TimeOfDay,
		DayOfWeek:  r.DayOfWeek,
		DayOfMonth: r.DayOfMonth,
		Expression: r.Expression,
	}
}

func recurrenceToJSON(r domain.Recurrence) recurrenceJSON {
	return recurrenceJSON{
		Frequency:  string(r.Frequency),
		TimeOfDay:  r.TimeOfDay,
		DayOfWeek:  r.DayOfWeek,
		DayOfMonth: r.DayOfMonth,
		Expression: r.Expression,
	}
}

type reminderJSON struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Rule       recurrenceJSON `json:"rule"`
	Active     bool           `json:"active"`
	LastFired  *time.Time     `json:"lastFired,omitempty"`
	NextFireAt *time.Time     `json:"nextFireAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func reminderToJSON(r *domain.Reminder) reminderJSON {
	return reminderJSON{
		ID:         r.ID,
		Kind:       string(r.Kind),
		Title:      r.Title,
		Message:    r.Message,
		Rule:       recurrenceToJSON(r.Rule),
		Active:     r.Active,
		LastFired:  r.LastFired,
		NextFireAt: r.NextFireAt,
		CreatedAt:  r.CreatedAt,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		s.writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}

	existing, err := s.storage.GetUserByEmail(req.Email)
	if err != nil {
		s.internalError(w, err, "get user by email")
		return
	}
	if existing != nil {
		s.writeError(w, http.StatusConflict, "email already registered")
		return
	}

	u := &domain.User{Email: req.Email, Name: strings.TrimSpace(req.Name)}
	if err := s.storage.CreateUser(u); err != nil {
		s.internalError(w, err, "create user")
		return
	}
	s.writeJSON(w, http.StatusCreated, userToJSON(u))
}

type userJSON struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func userToJSON(u *domain.User) userJSON {
	return userJSON{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	u, err := s.storage.GetUser(uid)
	if err != nil {
		s.internalError(w, err, "get user")
		return
	}
	if u == nil {
		s.writeError(w, http.StatusNotFound, "user not found")
		return
	}
	s.writeJSON(w, http.StatusOK, userToJSON(u))
}

func (s *Server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}

	var req struct {
		Kind    string         `json:"kind"`
		Title   string         `json:"title"`
		Message string         `json:"message"`
		Rule    recurrenceJSON `json:"rule"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reminder, err := s.reminders.Create(uid, domain.ReminderKind(req.Kind), req.Title, req.Message, req.Rule.toDomain())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, reminderToJSON(reminder))
}

func (s *Server) handleListReminders(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	reminders, err := s.reminders.List(uid)
	if err != nil {
		s.internalError(w, err, "list reminders")
		return
	}
	out := make([]reminderJSON, 0, len(reminders))
	for _, rem := range reminders {
		out = append(out, reminderToJSON(rem))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// ownedReminder loads a reminder and enforces that the caller owns it.
func (s *Server) ownedReminder(w http.ResponseWriter, r *http.Request) *domain.Reminder {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return nil
	}
	rem, err := s.reminders.Get(r.PathValue("id"))
	if err != nil {
		s.internalError(w, err, "get reminder")
		return nil
	}
	if rem == nil || rem.UserID != uid {
		s.writeError(w, http.StatusNotFound, "reminder not found")
		return nil
	}
	return rem
}

func (s *Server) handleGetReminder(w http.ResponseWriter, r *http.Request) {
	rem := s.ownedReminder(w, r)
	if rem == nil {
		return
	}
	s.writeJSON(w, http.StatusOK, reminderToJSON(rem))
}

func (s *Server) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	rem := s.ownedReminder(w, r)
	if rem == nil {
		return
	}

	var req struct {
		Kind    string         `json:"kind"`
		Title   string         `json:"title"`
		Message string         `json:"message"`
		Rule    recurrenceJSON `json:"rule"`
		Active  bool           `json:"active"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rem.Kind = domain.ReminderKind(req.Kind)
	rem.Title = req.Title
	rem.Message = req.Message
	rem.Rule = req.Rule.toDomain()
	rem.Active = req.Active

	if err := s.reminders.Update(rem.UserID, rem); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, reminderToJSON(rem))
}

func (s *Server) handleSetReminderActive(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rem, err := s.reminders.SetActive(uid, r.PathValue("id"), req.Active)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, reminderToJSON(rem))
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	if err := s.reminders.Delete(uid, r.PathValue("id")); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendReminder(w http.ResponseWriter, r *http.Request) {
	rem := s.ownedReminder(w, r)
	if rem == nil {
		return
	}
	s.sched.SendReminder(rem)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "dispatched"})
}

func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	rem := s.ownedReminder(w, r)
	if rem == nil {
		return
	}

	n := 5
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			s.writeError(w, http.StatusBadRequest, "count must be 1-100")
			return
		}
		n = parsed
	}

	times, err := export.Occurrences(rem, time.Now().UTC(), n)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"occurrences": times})
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.storage.ListReminderTemplates()
	if err != nil {
		s.internalError(w, err, "list templates")
		return
	}
	type templateJSON struct {
		ID      string         `json:"id"`
		Kind    string         `json:"kind"`
		Title   string         `json:"title"`
		Message string         `json:"message"`
		Rule    recurrenceJSON `json:"rule"`
	}
	out := make([]templateJSON, 0, len(templates))
	for _, t := range templates {
		out = append(out, templateJSON{
			ID:      t.ID,
			Kind:    string(t.Kind),
			Title:   t.Title,
			Message: t.Message,
			Rule:    recurrenceToJSON(t.Rule),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInstantiateTemplate(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	reminder, err := s.reminders.CreateFromTemplate(uid, r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, reminderToJSON(reminder))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}

	var req struct {
		CategoryID  string `json:"categoryId"`
		Type        string `json:"type"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
		Date        string `json:"date"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	date := time.Now().UTC()
	if req.Date != "" {
		date, err = time.Parse(time.RFC3339, req.Date)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "date must be RFC 3339")
			return
		}
	}

	t, err := s.transactions.Create(uid, req.CategoryID, domain.TransactionType(req.Type), amount, req.Description, date)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, transactionToJSON(t))
}

type transactionJSON struct {
	ID           string    `json:"id"`
	CategoryID   string    `json:"categoryId"`
	CategoryName string    `json:"categoryName,omitempty"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	Description  string    `json:"description,omitempty"`
	Date         time.Time `json:"date"`
}

func transactionToJSON(t *domain.Transaction) transactionJSON {
	return transactionJSON{
		ID:           t.ID,
		CategoryID:   t.CategoryID,
		CategoryName: t.CategoryName,
		Type:         string(t.Type),
		Amount:       t.Amount.String(),
		Description:  t.Description,
		Date:         t.Date,
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	year, month, ok := s.yearMonth(w, r)
	if !ok {
		return
	}

	txs, err := s.transactions.ListMonth(uid, year, month)
	if err != nil {
		s.internalError(w, err, "list transactions")
		return
	}
	out := make([]transactionJSON, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionToJSON(t))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	if err := s.transactions.Delete(uid, r.PathValue("id")); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}

	var req struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := s.categories.Create(uid, req.Name, domain.TransactionType(req.Type))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, categoryToJSON(c))
}

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func categoryToJSON(c *domain.Category) categoryJSON {
	return categoryJSON{ID: c.ID, Name: c.Name, Type: string(c.Type)}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	categories, err := s.categories.List(uid)
	if err != nil {
		s.internalError(w, err, "list categories")
		return
	}
	out := make([]categoryJSON, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryToJSON(c))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	if err := s.categories.Delete(uid, r.PathValue("id")); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "1"
	notifications, err := s.notifications.List(uid, unreadOnly)
	if err != nil {
		s.internalError(w, err, "list notifications")
		return
	}
	type notificationJSON struct {
		ID        string    `json:"id"`
		Kind      string    `json:"kind"`
		Title     string    `json:"title"`
		Message   string    `json:"message"`
		ActionURL string    `json:"actionUrl,omitempty"`
		Read      bool      `json:"read"`
		CreatedAt time.Time `json:"createdAt"`
	}
	out := make([]notificationJSON, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, notificationJSON{
			ID:        n.ID,
			Kind:      string(n.Kind),
			Title:     n.Title,
			Message:   n.Message,
			ActionURL: n.ActionURL,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	if err := s.notifications.MarkRead(uid, r.PathValue("id")); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	if err := s.notifications.Delete(uid, r.PathValue("id")); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendSummary(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}
	year, month, ok := s.yearMonth(w, r)
	if !ok {
		return
	}

	if err := s.sched.SendMonthlySummary(uid, year, month); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Echo back the numbers that went out in the email.
	txs, err := s.transactions.ListMonth(uid, year, month)
	if err != nil {
		s.internalError(w, err, "list transactions")
		return
	}
	s.writeJSON(w, http.StatusOK, summaryToJSON(scheduler.Summarize(txs, year, month)))
}

type categoryTotalJSON struct {
	Name  string `json:"name"`
	Total string `json:"total"`
}

type summaryJSON struct {
	Year          int                 `json:"year"`
	Month         int                 `json:"month"`
	Income        string              `json:"income"`
	Expenses      string              `json:"expenses"`
	Net           string              `json:"net"`
	TopCategories []categoryTotalJSON `json:"topCategories"`
}

func summaryToJSON(sum domain.MonthlySummary) summaryJSON {
	out := summaryJSON{
		Year:          sum.Year,
		Month:         sum.Month,
		Income:        sum.Income.String(),
		Expenses:      sum.Expenses.String(),
		Net:           sum.Net.String(),
		TopCategories: make([]categoryTotalJSON, 0, len(sum.TopCategories)),
	}
	for _, c := range sum.TopCategories {
		out.TopCategories = append(out.TopCategories, categoryTotalJSON{Name: c.Name, Total: c.Total.String()})
	}
	return out
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeError(w, http.StatusUnauthorized, "X-User-ID header required")
		return
	}

	reminders, err := s.reminders.List(uid)
	if err != nil {
		s.internalError(w, err, "list reminders")
		return
	}
	cal, err := export.Feed(reminders, time.Now().UTC())
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	data, err := export.Encode(cal)
	if err != nil {
		s.internalError(w, err, "encode calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="reminders.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Error().Err(err).Msg("write calendar response")
	}
}

func (s *Server) yearMonth(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 2000 || year > 2200 {
		s.writeError(w, http.StatusBadRequest, "invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		s.writeError(w, http.StatusBadRequest, "invalid month")
		return 0, 0, false
	}
	return year, month, true
}

func (s *Server) internalError(w http.ResponseWriter, err error, msg string) {
	s.log.Error().Err(err).Msg(msg)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}
