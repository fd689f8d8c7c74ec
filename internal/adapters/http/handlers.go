package web

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"gymdesk/internal/adapters/http/middleware"
	memberStore "gymdesk/internal/adapters/storage/member"
	"gymdesk/internal/application/listutil"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/application/projections"
	classTypeDomain "gymdesk/internal/domain/classtype"
	courseInstanceDomain "gymdesk/internal/domain/courseinstance"
	ledgerDomain "gymdesk/internal/domain/ledger"
	memberDomain "gymdesk/internal/domain/member"
	planDomain "gymdesk/internal/domain/plan"
	registrationDomain "gymdesk/internal/domain/registration"
	scheduleDomain "gymdesk/internal/domain/schedule"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDomainError maps admission and ledger failures onto HTTP statuses.
// Overlap failures carry the conflict list so the client can offer a forced
// retry. Anything unrecognized is treated as an infrastructure error.
func writeDomainError(w http.ResponseWriter, err error) {
	if oe, ok := registrationDomain.AsOverlapError(err); ok {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     oe.Error(),
			"conflicts": oe.Conflicts,
		})
		return
	}
	switch {
	case errors.Is(err, registrationDomain.ErrCapacityExceeded),
		errors.Is(err, registrationDomain.ErrAlreadyRegistered),
		errors.Is(err, registrationDomain.ErrAlreadyCheckedIn),
		errors.Is(err, registrationDomain.ErrConcurrentConflict),
		errors.Is(err, registrationDomain.ErrCourseNotEnded),
		errors.Is(err, memberDomain.ErrAlreadyArchived),
		errors.Is(err, memberDomain.ErrNotArchived):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, registrationDomain.ErrNoActiveSubscription),
		errors.Is(err, ledgerDomain.ErrInsufficientSessions),
		errors.Is(err, ledgerDomain.ErrOverRefund),
		errors.Is(err, memberDomain.ErrNotActive):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, registrationDomain.ErrCourseAlreadyStarted),
		errors.Is(err, courseInstanceDomain.ErrNotOpen):
		http.Error(w, err.Error(), http.StatusGone)
	case errors.Is(err, sql.ErrNoRows):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, scheduleDomain.ErrInvalidScheduleConfig):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		internalError(w, err)
	}
}

// cancelCutoff reads the refund cutoff from GYMDESK_CANCEL_CUTOFF_HOURS.
// Zero falls through to the policy default.
func cancelCutoff() time.Duration {
	if v := os.Getenv("GYMDESK_CANCEL_CUTOFF_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			return time.Duration(hours) * time.Hour
		}
	}
	return 0
}

func requireSession(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	return sess, true
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := requireSession(w, r)
	if !ok {
		return middleware.Session{}, false
	}
	if sess.Role != "admin" {
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role, "required", "admin")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return middleware.Session{}, false
	}
	return sess, true
}

// requireStaff admits front-desk staff and admins.
func requireStaff(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := requireSession(w, r)
	if !ok {
		return middleware.Session{}, false
	}
	if sess.Role != "admin" && sess.Role != "staff" {
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role, "required", "staff")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return middleware.Session{}, false
	}
	return sess, true
}

// ownMember resolves the member record linked to a member-role session.
func ownMember(w http.ResponseWriter, r *http.Request, sess middleware.Session) (memberDomain.Member, bool) {
	m, err := stores.MemberStore.GetByAccountID(r.Context(), sess.AccountID)
	if err != nil {
		http.Error(w, "no member record linked to this account", http.StatusForbidden)
		return memberDomain.Member{}, false
	}
	return m, true
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/login", handleLogin)
	mux.HandleFunc("/api/logout", handleLogout)
	mux.HandleFunc("/api/change-password", handleChangePassword)
	mux.HandleFunc("/api/accounts", handleAccounts)

	mux.HandleFunc("/api/members", handleMembers)
	mux.HandleFunc("/api/members/overview", handleMemberOverview)
	mux.HandleFunc("/api/members/archive", handleArchiveMember)
	mux.HandleFunc("/api/members/restore", handleRestoreMember)

	mux.HandleFunc("/api/classtypes", handleClassTypes)
	mux.HandleFunc("/api/plans", handlePlans)
	mux.HandleFunc("/api/schedules", handleSchedules)
	mux.HandleFunc("/api/subscriptions", handleSubscriptions)

	mux.HandleFunc("/api/sessions", handleSessions)
	mux.HandleFunc("/api/sessions/adjust", handleAdjustSessions)
	mux.HandleFunc("/api/sessions/entries", handleSessionEntries)

	mux.HandleFunc("/api/calendar", handleCalendar)
	mux.HandleFunc("/api/instances/materialize", handleMaterializeInstances)
	mux.HandleFunc("/api/instances/cancel", handleCancelInstance)

	mux.HandleFunc("/api/registrations", handleRegistrations)
	mux.HandleFunc("/api/registrations/cancel", handleCancelRegistration)
	mux.HandleFunc("/api/registrations/bulk", handleBulkRegister)
	mux.HandleFunc("/api/registrations/absent", handleMarkAbsent)

	mux.HandleFunc("/api/checkins", handleCheckIns)
	mux.HandleFunc("/api/checkin-info", handleCheckInInfo)

	mux.HandleFunc("/admin/perf", handlePerfSnapshot)
}

// handleLogin handles POST /api/login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	input := orchestrators.LoginInput{}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	deps := orchestrators.LoginDeps{AccountStore: stores.AccountStore}
	result, err := orchestrators.ExecuteLogin(r.Context(), input, deps)
	if err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := sessions.Create(result.AccountID, result.Email, result.Role)
	if err != nil {
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}
	middleware.SetSessionCookie(w, token)

	writeJSON(w, http.StatusOK, map[string]string{
		"account_id": result.AccountID,
		"email":      result.Email,
		"role":       result.Role,
	})
}

// handleLogout handles POST /api/logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cookie, err := r.Cookie("gymdesk_session")
	if err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleChangePassword handles POST /api/change-password
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var body struct {
		CurrentPassword string
		NewPassword     string
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	input := orchestrators.ChangePasswordInput{
		AccountID:       sess.AccountID,
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	}
	deps := orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore}
	if err := orchestrators.ExecuteChangePassword(r.Context(), input, deps); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAccounts handles POST /api/accounts (admin only)
func handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	input := orchestrators.CreateAccountInput{}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	deps := orchestrators.CreateAccountDeps{AccountStore: stores.AccountStore}
	id, err := orchestrators.ExecuteCreateAccount(r.Context(), input, deps)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"account_id": id})
}

// handleMembers handles GET (list) and POST (register) for /api/members
func handleMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		if _, ok := requireStaff(w, r); !ok {
			return
		}
		filter := memberListFilter(r)
		members, err := stores.MemberStore.List(ctx, filter)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, members)
		return
	}

	if r.Method == "POST" {
		if _, ok := requireStaff(w, r); !ok {
			return
		}
		input := orchestrators.RegisterMemberInput{}
		if err := strictDecode(r, &input); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		deps := orchestrators.RegisterMemberDeps{MemberStore: stores.MemberStore}
		id, err := orchestrators.ExecuteRegisterMember(ctx, input, deps)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"member_id": id})
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// memberListFilter parses list query params for /api/members. Pagination
// uses page/per_page; status narrows the list to one member status.
func memberListFilter(r *http.Request) memberStore.ListFilter {
	q := r.URL.Query()
	page := listutil.ParsePageParams(q)
	filters := listutil.ParseFilterParams(q, []string{"status"})
	return memberStore.ListFilter{
		Status: filters.Filters["status"],
		Limit:  page.PerPage,
		Offset: (page.Page - 1) * page.PerPage,
	}
}

// handleMemberOverview handles GET /api/members/overview?member_id=...
// Members may only view their own overview; staff may view anyone's.
func handleMemberOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	memberID := r.URL.Query().Get("member_id")
	if sess.Role == "member" {
		m, ok := ownMember(w, r, sess)
		if !ok {
			return
		}
		memberID = m.ID
	}
	if memberID == "" {
		http.Error(w, "member_id is required", http.StatusBadRequest)
		return
	}

	deps := projections.GetMemberOverviewDeps{
		MemberStore:       stores.MemberStore,
		SubscriptionStore: stores.SubscriptionStore,
		LedgerStore:       stores.LedgerStore,
		RegistrationStore: stores.RegistrationStore,
	}
	result, err := projections.QueryGetMemberOverview(r.Context(), memberID, deps)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleArchiveMember handles POST /api/members/archive (admin only)
func handleArchiveMember(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	input := orchestrators.ArchiveMemberInput{}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	deps := orchestrators.ArchiveMemberDeps{MemberStore: stores.MemberStore}
	if err := orchestrators.ExecuteArchiveMember(r.Context(), input, deps); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRestoreMember handles POST /api/members/restore (admin only)
func handleRestoreMember(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	input := orchestrators.RestoreMemberInput{}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	deps := orchestrators.RestoreMemberDeps{MemberStore: stores.MemberStore}
	if err := orchestrators.ExecuteRestoreMember(r.Context(), input, deps); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// classTypeView is the wire shape for class types; the markdown description
// is rendered server-side so clients never interpret raw markdown.
type classTypeView struct {
	classTypeDomain.ClassType
	DescriptionHTML string
}

// handleClassTypes handles GET (list) and POST (upsert, admin) for /api/classtypes
func handleClassTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		if _, ok := requireSession(w, r); !ok {
			return
		}
		classTypes, err := stores.ClassTypeStore.List(ctx)
		if err != nil {
			internalError(w, err)
			return
		}
		views := make([]classTypeView, 0, len(classTypes))
		for _, ct := range classTypes {
			views = append(views, classTypeView{ClassType: ct, DescriptionHTML: renderMarkdown(ct.Description)})
		}
		writeJSON(w, http.StatusOK, views)
		return
	}

	if r.Method == "POST" {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var ct classTypeDomain.ClassType
		if err := strictDecode(r, &ct); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if ct.ID == "" {
			ct.ID = generateID()
		}
		if err := ct.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := stores.ClassTypeStore.Save(ctx, ct); err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"class_type_id": ct.ID})
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

func renderMarkdown(md string) string {
	if md == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return buf.String()
}

// handlePlans handles GET (list) and POST (upsert, admin) for /api/plans
func handlePlans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		if _, ok := requireSession(w, r); !ok {
			return
		}
		plans, err := stores.PlanStore.List(ctx)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plans)
		return
	}

	if r.Method == "POST" {
		if _, ok := requireAdmin(w, r); !ok {
			return
		}
		var p planDomain.Plan
		if err := strictDecode(r, &p); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if p.ID == "" {
			p.ID = generateID()
		}
		for i := range p.Groups {
			if p.Groups[i].ID == "" {
				p.Groups[i].ID = generateID()
			}
			p.Groups[i].PlanID = p.ID
		}
		if err := p.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := stores.PlanStore.Save(ctx, p); err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"plan_id": p.ID})
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleSchedules handles GET/POST/DELETE for /api/schedules (admin only)
func handleSchedules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	switch r.Method {
	case "GET":
		schedules, err := stores.ScheduleStore.List(ctx)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, schedules)

	case "POST":
		var s scheduleDomain.Schedule
		if err := strictDecode(r, &s); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if s.ID == "" {
			s.ID = generateID()
		}
		if err := s.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := stores.ScheduleStore.Save(ctx, s); err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"schedule_id": s.ID})

	case "DELETE":
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if err := stores.ScheduleStore.Delete(ctx, id); err != nil {
			internalError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleSubscriptions handles GET (by member) and POST (issue, staff) for /api/subscriptions
func handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		sess, ok := requireSession(w, r)
		if !ok {
			return
		}
		memberID := r.URL.Query().Get("member_id")
		if sess.Role == "member" {
			m, ok := ownMember(w, r, sess)
			if !ok {
				return
			}
			memberID = m.ID
		}
		if memberID == "" {
			http.Error(w, "member_id is required", http.StatusBadRequest)
			return
		}
		subs, err := stores.SubscriptionStore.ListByMember(ctx, memberID)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, subs)
		return
	}

	if r.Method == "POST" {
		sess, ok := requireStaff(w, r)
		if !ok {
			return
		}
		var body struct {
			MemberID  string
			PlanID    string
			StartDate string
			EndDate   string
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		input := orchestrators.IssueSubscriptionInput{
			MemberID:  body.MemberID,
			PlanID:    body.PlanID,
			StartDate: body.StartDate,
			EndDate:   body.EndDate,
			Actor:     sess.AccountID,
		}
		deps := orchestrators.IssueSubscriptionDeps{
			MemberStore:       stores.MemberStore,
			PlanStore:         stores.PlanStore,
			SubscriptionStore: stores.SubscriptionStore,
			LedgerStore:       stores.LedgerStore,
		}
		result, err := orchestrators.ExecuteIssueSubscription(ctx, input, deps)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleSessions handles GET /api/sessions?subscription_id=...
func handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	subscriptionID := r.URL.Query().Get("subscription_id")
	if subscriptionID == "" {
		http.Error(w, "subscription_id is required", http.StatusBadRequest)
		return
	}

	// Members may only inspect pools on their own subscriptions.
	if sess.Role == "member" {
		m, ok := ownMember(w, r, sess)
		if !ok {
			return
		}
		sub, err := stores.SubscriptionStore.GetByID(r.Context(), subscriptionID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if sub.MemberID != m.ID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	pools, err := stores.LedgerStore.ListBySubscription(r.Context(), subscriptionID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

// handleAdjustSessions handles POST /api/sessions/adjust (staff only)
func handleAdjustSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var body struct {
		SubscriptionID string
		GroupID        string
		Delta          int
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if body.SubscriptionID == "" || body.GroupID == "" {
		http.Error(w, "subscription_id and group_id are required", http.StatusBadRequest)
		return
	}

	// Callers identify the pool by subscription and plan group; resolve the
	// one pool that pair names.
	pools, err := stores.LedgerStore.ListBySubscription(r.Context(), body.SubscriptionID)
	if err != nil {
		internalError(w, err)
		return
	}
	var poolID string
	for _, pool := range pools {
		if pool.GroupID == body.GroupID {
			poolID = pool.ID
			break
		}
	}
	if poolID == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	input := orchestrators.AdjustSessionsInput{
		GroupSessionID: poolID,
		Delta:          body.Delta,
		Actor:          sess.AccountID,
	}
	deps := orchestrators.AdjustSessionsDeps{LedgerStore: stores.LedgerStore}
	result, err := orchestrators.ExecuteAdjustSessions(r.Context(), input, deps)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSessionEntries handles GET /api/sessions/entries?group_session_id=... (staff only)
func handleSessionEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireStaff(w, r); !ok {
		return
	}

	groupSessionID := r.URL.Query().Get("group_session_id")
	if groupSessionID == "" {
		http.Error(w, "group_session_id is required", http.StatusBadRequest)
		return
	}
	entries, err := stores.LedgerStore.ListEntries(r.Context(), groupSessionID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleCalendar handles GET /api/calendar?from=...&to=...
// Defaults to a two-week window starting today.
func handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireSession(w, r); !ok {
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" {
		from = timeNow().Format("2006-01-02")
	}
	if to == "" {
		to = timeNow().AddDate(0, 0, 14).Format("2006-01-02")
	}

	deps := projections.GetCalendarDeps{
		InstanceStore:     stores.CourseInstanceStore,
		ClassTypeStore:    stores.ClassTypeStore,
		RegistrationStore: stores.RegistrationStore,
	}
	entries, err := projections.QueryGetCalendar(r.Context(), from, to, deps)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleMaterializeInstances handles POST /api/instances/materialize (admin only)
func handleMaterializeInstances(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	input := orchestrators.MaterializeInstancesInput{}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	deps := orchestrators.MaterializeInstancesDeps{
		ScheduleStore:  stores.ScheduleStore,
		ClassTypeStore: stores.ClassTypeStore,
		InstanceStore:  stores.CourseInstanceStore,
		Now:            timeNow,
	}
	result, err := orchestrators.ExecuteMaterializeInstances(r.Context(), input, deps)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCancelInstance handles POST /api/instances/cancel (staff only)
func handleCancelInstance(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var body struct {
		CourseInstanceID string
		Reason           string
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	input := orchestrators.CancelInstanceInput{
		CourseInstanceID: body.CourseInstanceID,
		Reason:           body.Reason,
		Actor:            sess.AccountID,
	}
	deps := orchestrators.CancelInstanceDeps{
		InstanceStore:     stores.CourseInstanceStore,
		RegistrationStore: stores.RegistrationStore,
		MemberStore:       stores.MemberStore,
		EmailSender:       emailSender,
		FromAddress:       emailFromAddress,
		ReplyTo:           emailReplyTo,
		Now:               timeNow,
	}
	result, err := orchestrators.ExecuteCancelInstance(r.Context(), input, deps)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRegistrations handles GET (roster, staff) and POST (register) for /api/registrations.
// Members register themselves; staff can register anyone, force past overlap
// warnings, and hold guest spots.
func handleRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "GET" {
		if _, ok := requireStaff(w, r); !ok {
			return
		}
		courseInstanceID := r.URL.Query().Get("course_instance_id")
		if courseInstanceID == "" {
			http.Error(w, "course_instance_id is required", http.StatusBadRequest)
			return
		}
		regs, err := stores.RegistrationStore.ListByCourseInstance(ctx, courseInstanceID)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, regs)
		return
	}

	if r.Method == "POST" {
		sess, ok := requireSession(w, r)
		if !ok {
			return
		}

		var body struct {
			MemberID         string
			CourseInstanceID string
			Force            bool
			IsGuest          bool
			Notes            string
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		input := orchestrators.RegisterForCourseInput{
			MemberID:         body.MemberID,
			CourseInstanceID: body.CourseInstanceID,
			Force:            body.Force,
			IsGuest:          body.IsGuest,
			Notes:            body.Notes,
			Actor:            sess.AccountID,
		}
		if sess.Role == "member" {
			m, ok := ownMember(w, r, sess)
			if !ok {
				return
			}
			input.MemberID = m.ID
			input.IsGuest = false
			input.Actor = "self"
		}

		result, err := orchestrators.ExecuteRegisterForCourse(ctx, input, registrationDeps())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

func registrationDeps() orchestrators.RegisterForCourseDeps {
	return orchestrators.RegisterForCourseDeps{
		MemberStore:       stores.MemberStore,
		InstanceStore:     stores.CourseInstanceStore,
		ClassTypeStore:    stores.ClassTypeStore,
		LedgerStore:       stores.LedgerStore,
		RegistrationStore: stores.RegistrationStore,
		Now:               timeNow,
	}
}

// handleCancelRegistration handles POST /api/registrations/cancel.
// Members may cancel only their own registrations and never override the
// refund policy; staff can do both.
func handleCancelRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	var body struct {
		RegistrationID string
		RefundOverride *bool
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	input := orchestrators.CancelRegistrationInput{
		RegistrationID: body.RegistrationID,
		RefundOverride: body.RefundOverride,
		Actor:          sess.AccountID,
	}
	if sess.Role == "member" {
		m, ok := ownMember(w, r, sess)
		if !ok {
			return
		}
		reg, err := stores.RegistrationStore.GetByID(r.Context(), body.RegistrationID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if reg.MemberID != m.ID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		input.RefundOverride = nil
		input.Actor = "self"
	}

	deps := orchestrators.CancelRegistrationDeps{
		RegistrationStore: stores.RegistrationStore,
		InstanceStore:     stores.CourseInstanceStore,
		Policy:            registrationDomain.NewCancelPolicy(cancelCutoff()),
		Now:               timeNow,
	}
	result, err := orchestrators.ExecuteCancelRegistration(r.Context(), input, deps)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleBulkRegister handles POST /api/registrations/bulk (staff only)
func handleBulkRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var body struct {
		MemberIDs        []string
		CourseInstanceID string
		Force            bool
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	input := orchestrators.BulkRegisterInput{
		MemberIDs:        body.MemberIDs,
		CourseInstanceID: body.CourseInstanceID,
		Force:            body.Force,
		Actor:            sess.AccountID,
	}
	result, err := orchestrators.ExecuteBulkRegister(r.Context(), input, registrationDeps())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleMarkAbsent handles POST /api/registrations/absent (staff only)
func handleMarkAbsent(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var body struct {
		RegistrationID string
		RefundOverride *bool
	}
	if err := strictDecode(r, &body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	input := orchestrators.MarkAbsentInput{
		RegistrationID: body.RegistrationID,
		RefundOverride: body.RefundOverride,
		Actor:          sess.AccountID,
	}
	deps := orchestrators.MarkAbsentDeps{
		RegistrationStore: stores.RegistrationStore,
		InstanceStore:     stores.CourseInstanceStore,
		Now:               timeNow,
	}
	if err := orchestrators.ExecuteMarkAbsent(r.Context(), input, deps); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCheckIns handles POST (validate) and DELETE (unvalidate) for /api/checkins.
// Members check themselves in with their QR code (recorded as a self scan);
// staff validate by registration ID from the roster.
func handleCheckIns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method == "POST" {
		sess, ok := requireSession(w, r)
		if !ok {
			return
		}

		var body struct {
			QRCode         string
			RegistrationID string
		}
		if err := strictDecode(r, &body); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		input := orchestrators.ValidateCheckInInput{
			QRCode:         body.QRCode,
			RegistrationID: body.RegistrationID,
			ValidatedBy:    sess.AccountID,
		}
		if sess.Role == "member" {
			if body.QRCode == "" {
				http.Error(w, "members check in by QR code", http.StatusBadRequest)
				return
			}
			input.RegistrationID = ""
			input.ValidatedBy = "self"
		}

		result, err := orchestrators.ExecuteValidateCheckIn(ctx, input, checkInDeps())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, result)
		return
	}

	if r.Method == "DELETE" {
		sess, ok := requireStaff(w, r)
		if !ok {
			return
		}
		registrationID := r.URL.Query().Get("registration_id")
		if registrationID == "" {
			http.Error(w, "registration_id is required", http.StatusBadRequest)
			return
		}
		input := orchestrators.UnvalidateCheckInInput{
			RegistrationID: registrationID,
			Actor:          sess.AccountID,
		}
		if err := orchestrators.ExecuteUnvalidateCheckIn(ctx, input, checkInDeps()); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

func checkInDeps() orchestrators.ValidateCheckInDeps {
	return orchestrators.ValidateCheckInDeps{
		CheckInStore:      stores.CheckInStore,
		RegistrationStore: stores.RegistrationStore,
		InstanceStore:     stores.CourseInstanceStore,
		Now:               timeNow,
	}
}

// handleCheckInInfo handles GET /api/checkin-info?qr=... (staff only)
func handleCheckInInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireStaff(w, r); !ok {
		return
	}

	qr := r.URL.Query().Get("qr")
	if qr == "" {
		http.Error(w, "qr is required", http.StatusBadRequest)
		return
	}

	deps := projections.GetCheckInInfoDeps{
		RegistrationStore: stores.RegistrationStore,
		MemberStore:       stores.MemberStore,
		InstanceStore:     stores.CourseInstanceStore,
		ClassTypeStore:    stores.ClassTypeStore,
		LedgerStore:       stores.LedgerStore,
		CheckInStore:      stores.CheckInStore,
	}
	result, err := projections.QueryGetCheckInInfo(r.Context(), qr, deps)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePerfSnapshot handles GET /admin/perf (admin only)
func handlePerfSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	snapshot := perfCollector.Snapshot(timeNow().Add(-time.Hour), 20)
	writeJSON(w, http.StatusOK, snapshot)
}
