package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/mkclient/internal/rate"
	"github.com/MrEthical07/mkclient/middleware"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": code})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	email := normalizeEmail(in.Email)
	ctx := r.Context()

	if err := s.limiter.Check(ctx, rate.ScopeLogin, email); err != nil {
		s.writeLimited(w, err)
		return
	}

	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()

	valid := false
	if ok {
		match, err := s.hasher.Verify(in.Password, u.hash)
		valid = err == nil && match
	}
	if !valid {
		if err := s.limiter.Fail(ctx, rate.ScopeLogin, email); err != nil && !errors.Is(err, rate.ErrRateLimited) {
			writeError(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeError(w, http.StatusUnauthorized, "Credenciales inválidas")
		return
	}
	_ = s.limiter.Reset(ctx, rate.ScopeLogin, email)

	tok, err := s.issue(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}
	s.mu.Lock()
	status := StatusActive
	if t, ok := s.tenants[u.tenantID]; ok {
		status = t.status
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"token":         tok,
		"role":          u.role,
		"tenant_status": status,
	})
}

func (s *Server) writeLimited(w http.ResponseWriter, err error) {
	if errors.Is(err, rate.ErrRateLimited) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":   "too_many_attempts",
			"message": "Demasiados intentos. Intenta más tarde.",
		})
		return
	}
	writeError(w, http.StatusServiceUnavailable, "unavailable")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	email := normalizeEmail(in.Email)
	ctx := r.Context()

	if err := s.limiter.Check(ctx, rate.ScopeRegister, email); err != nil {
		s.writeLimited(w, err)
		return
	}
	reject := func(status int, code string) {
		_ = s.limiter.Fail(ctx, rate.ScopeRegister, email)
		writeError(w, status, code)
	}
	switch {
	case email == "":
		reject(http.StatusBadRequest, "email_required")
		return
	case !emailPattern.MatchString(email):
		reject(http.StatusBadRequest, "invalid_email")
		return
	case len(in.Password) < 8:
		reject(http.StatusBadRequest, "weak_password")
		return
	}

	if _, err := s.CreateAccount(email, in.Password, "admin", PlanBasic); err != nil {
		reject(http.StatusConflict, "email_taken")
		return
	}
	s.mu.Lock()
	s.users[email].fullName = strings.TrimSpace(in.FullName)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
}

type principal struct {
	userID   int64
	tenantID int64
	role     string
}

func principalFrom(r *http.Request) (principal, bool) {
	c, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return principal{}, false
	}
	uid, err1 := strconv.ParseInt(c.Subject, 10, 64)
	tid, err2 := strconv.ParseInt(c.TenantID, 10, 64)
	if err1 != nil || err2 != nil {
		return principal{}, false
	}
	return principal{userID: uid, tenantID: tid, role: c.Role}, true
}

// requireActive answers 403 with the tenant status for write requests of suspended
// tenants.
func (s *Server) requireActive(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.mu.Lock()
		status := StatusActive
		if t, ok := s.tenants[p.tenantID]; ok {
			status = t.status
		}
		s.mu.Unlock()
		if status != StatusActive {
			writeJSON(w, http.StatusForbidden, map[string]any{
				"error":         "tenant_suspended",
				"message":       "Tu suscripción está suspendida.",
				"tenant_status": status,
			})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"sub":       p.userID,
		"tenant_id": p.tenantID,
		"role":      p.role,
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s.mu.Lock()
	out := make([]map[string]any, 0)
	for _, d := range s.sortedDevices(p.tenantID) {
		out = append(out, map[string]any{
			"id":               d.id,
			"name":             d.name,
			"ip_address":       d.ip,
			"port":             d.port,
			"firmware_version": d.firmware,
			"location":         d.location,
			"wan_type":         d.wanType,
			"health_status":    d.health,
			"created_at":       d.createdAt.Format("2006-01-02T15:04:05"),
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// sortedDevices must be called with mu held.
func (s *Server) sortedDevices(tenantID int64) []*device {
	var out []*device
	for _, d := range s.devices {
		if d.tenantID == tenantID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var in struct {
		Name      string `json:"name"`
		IPAddress string `json:"ip_address"`
		Port      int    `json:"port"`
		Location  string `json:"location"`
		WANType   string `json:"wan_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.IPAddress) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "missing_fields",
			"message": "name e ip_address son obligatorios",
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[p.tenantID]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if t.plan.MaxDevices > 0 && len(s.sortedDevices(t.id)) >= t.plan.MaxDevices {
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"upsell":             true,
			"message":            "Has alcanzado el límite de " + strconv.Itoa(t.plan.MaxDevices) + " dispositivos de " + t.plan.Name + ".",
			"required_plan_hint": t.plan.NextHint,
		})
		return
	}
	port := in.Port
	if port == 0 {
		port = 8728
	}
	d := &device{
		id:        s.id(),
		tenantID:  t.id,
		name:      strings.TrimSpace(in.Name),
		ip:        strings.TrimSpace(in.IPAddress),
		port:      port,
		location:  in.Location,
		wanType:   in.WANType,
		health:    "unknown",
		createdAt: s.Now(),
	}
	s.devices[d.id] = d
	writeJSON(w, http.StatusCreated, map[string]any{"id": d.id})
}

func parseRange(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	if v := q.Get("fecha_inicio"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			return
		}
	}
	if v := q.Get("fecha_fin"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			return
		}
	}
	return
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	q := r.URL.Query()
	var deviceID int64
	if v := q.Get("device_id"); v != "" {
		if deviceID, err = strconv.ParseInt(v, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_device_id")
			return
		}
	}

	s.mu.Lock()
	var matched []*alert
	for _, a := range s.alerts {
		switch {
		case a.tenantID != p.tenantID:
		case q.Get("estado") != "" && a.estado != q.Get("estado"):
		case q.Get("status_operativo") != "" && a.status != q.Get("status_operativo"):
		case deviceID != 0 && a.deviceID != deviceID:
		case !inRange(a.createdAt, from, to):
		default:
			matched = append(matched, a)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].createdAt.Equal(matched[j].createdAt) {
			return matched[i].id > matched[j].id
		}
		return matched[i].createdAt.After(matched[j].createdAt)
	})
	out := make([]map[string]any, 0, len(matched))
	for _, a := range matched {
		out = append(out, map[string]any{
			"id":                 a.id,
			"device_id":          a.deviceID,
			"estado":             a.estado,
			"titulo":             a.title,
			"descripcion":        a.description,
			"accion_recomendada": a.action,
			"status_operativo":   a.status,
			"comentario_ultimo":  a.comment,
			"created_at":         a.createdAt.Format(time.RFC3339),
			"updated_at":         a.updatedAt.Format(time.RFC3339),
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAlertStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	var in struct {
		Status  string `json:"status_operativo"`
		Comment string `json:"comentario"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	switch in.Status {
	case "Pendiente", "En curso", "Resuelta":
	default:
		writeError(w, http.StatusBadRequest, "invalid_status")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok || a.tenantID != p.tenantID {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	a.status = in.Status
	if in.Comment != "" {
		a.comment = in.Comment
	}
	a.updatedAt = s.Now()
	writeJSON(w, http.StatusOK, map[string]any{"id": a.id, "status_operativo": a.status})
}

func (s *Server) handleSubscription(legacy bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.legacyOnly && !legacy {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		t, ok := s.tenants[p.tenantID]
		if !ok {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		var maxDevices any
		if t.plan.MaxDevices > 0 {
			maxDevices = t.plan.MaxDevices
		}
		out := map[string]any{
			"plan":        t.plan.Name,
			"max_devices": maxDevices,
			"used":        len(s.sortedDevices(t.id)),
			"status_pago": t.status,
		}
		if t.status == StatusSuspended {
			out["suspended"] = true
		}
		writeJSON(w, http.StatusOK, out)
	}
}
