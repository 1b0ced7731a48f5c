package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Alert operational states.
const (
	AlertPending    = "Pendiente"
	AlertInProgress = "En curso"
	AlertResolved   = "Resuelta"
)

// ValidAlertStatus reports whether s is an accepted operational state.
func ValidAlertStatus(s string) bool {
	switch s {
	case AlertPending, AlertInProgress, AlertResolved:
		return true
	}
	return false
}

// Alert is a device alert.
type Alert struct {
	ID                int64     `json:"id"`
	DeviceID          int64     `json:"device_id"`
	Estado            string    `json:"estado"`
	Title             string    `json:"titulo"`
	Description       string    `json:"descripcion"`
	RecommendedAction string    `json:"accion_recomendada"`
	OperationalStatus string    `json:"status_operativo"`
	LastComment       string    `json:"comentario_ultimo"`
	CreatedAt         Timestamp `json:"created_at"`
	UpdatedAt         Timestamp `json:"updated_at"`
}

// AlertFilter narrows List. Zero fields are not sent.
type AlertFilter struct {
	Estado            string
	DeviceID          int64
	OperationalStatus string
	From, To          time.Time
}

func (f AlertFilter) query() url.Values {
	q := url.Values{}
	if f.Estado != "" {
		q.Set("estado", f.Estado)
	}
	if f.DeviceID != 0 {
		q.Set("device_id", strconv.FormatInt(f.DeviceID, 10))
	}
	if f.OperationalStatus != "" {
		q.Set("status_operativo", f.OperationalStatus)
	}
	if !f.From.IsZero() {
		q.Set("fecha_inicio", formatQueryTime(f.From))
	}
	if !f.To.IsZero() {
		q.Set("fecha_fin", formatQueryTime(f.To))
	}
	return q
}

// AlertStatusUpdate moves an alert to a new operational state.
type AlertStatusUpdate struct {
	Status  string `json:"status_operativo"`
	Comment string `json:"comentario,omitempty"`
}

// Alerts is the alert resource.
type Alerts struct {
	c *Client
}

// List returns alerts matching f.
func (a *Alerts) List(ctx context.Context, f AlertFilter) ([]Alert, error) {
	var out []Alert
	if err := a.c.do(ctx, http.MethodGet, "/alerts", f.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus sets the operational state of alert id.
func (a *Alerts) UpdateStatus(ctx context.Context, id int64, u AlertStatusUpdate) (string, error) {
	if !ValidAlertStatus(u.Status) {
		return "", ErrInvalidAlertStatus
	}
	var out struct {
		ID     int64  `json:"id"`
		Status string `json:"status_operativo"`
	}
	path := "/alerts/" + strconv.FormatInt(id, 10) + "/status"
	if err := a.c.do(ctx, http.MethodPatch, path, nil, u, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}
