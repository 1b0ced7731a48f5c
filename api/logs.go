package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// LogEntry is a device log line.
type LogEntry struct {
	ID              int64     `json:"id"`
	RawLog          string    `json:"raw_log"`
	Level           string    `json:"log_level"`
	DeviceTimestamp Timestamp `json:"timestamp_equipo"`
	CreatedAt       Timestamp `json:"created_at"`
}

// LogRow is one row of a CSV export.
type LogRow struct {
	DeviceTimestamp time.Time
	DeviceID        int64
	RawLog          string
}

// LogQuery selects log lines. Limit is 5, 10 or 20 for JSON and CSV and any positive
// value for PDF; zero uses the backend default.
type LogQuery struct {
	Limit    int
	From, To time.Time
}

var csvHeader = []string{"timestamp_equipo", "device_id", "raw_log"}

func (q LogQuery) values(format string) (url.Values, error) {
	v := url.Values{}
	if q.Limit != 0 {
		if format != "pdf" && q.Limit != 5 && q.Limit != 10 && q.Limit != 20 {
			return nil, ErrInvalidLimit
		}
		if q.Limit < 0 {
			return nil, ErrInvalidLimit
		}
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.From.IsZero() {
		v.Set("fecha_inicio", formatQueryTime(q.From))
	}
	if !q.To.IsZero() {
		v.Set("fecha_fin", formatQueryTime(q.To))
	}
	if format != "" {
		v.Set("format", format)
	}
	return v, nil
}

// Logs is the device log resource.
type Logs struct {
	c *Client
}

func logsPath(deviceID int64) string {
	return "/devices/" + strconv.FormatInt(deviceID, 10) + "/logs"
}

// List returns the most recent log lines of a device.
func (l *Logs) List(ctx context.Context, deviceID int64, q LogQuery) ([]LogEntry, error) {
	v, err := q.values("")
	if err != nil {
		return nil, err
	}
	var out []LogEntry
	if err := l.c.do(ctx, http.MethodGet, logsPath(deviceID), v, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportCSV downloads and parses the CSV export.
func (l *Logs) ExportCSV(ctx context.Context, deviceID int64, q LogQuery) ([]LogRow, error) {
	v, err := q.values("csv")
	if err != nil {
		return nil, err
	}
	body, _, err := l.c.send(ctx, http.MethodGet, logsPath(deviceID), v, nil, "text/csv")
	if err != nil {
		return nil, err
	}
	return parseLogCSV(body)
}

// ExportPDF downloads the PDF report.
func (l *Logs) ExportPDF(ctx context.Context, deviceID int64, q LogQuery) ([]byte, error) {
	v, err := q.values("pdf")
	if err != nil {
		return nil, err
	}
	body, _, err := l.c.send(ctx, http.MethodGet, logsPath(deviceID), v, nil, "application/pdf")
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		return nil, errors.New("api: export is not a PDF document")
	}
	return body, nil
}

func parseLogCSV(body []byte) ([]LogRow, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("api: empty CSV export")
		}
		return nil, fmt.Errorf("api: read CSV header: %w", err)
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("api: unexpected CSV column %q", header[i])
		}
	}

	var rows []LogRow
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("api: read CSV row: %w", err)
		}
		row := LogRow{RawLog: rec[2]}
		if rec[0] != "" {
			ts, err := parseTimestamp(rec[0])
			if err != nil {
				return nil, fmt.Errorf("api: CSV timestamp %q: %w", rec[0], err)
			}
			row.DeviceTimestamp = ts
		}
		id, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("api: CSV device id %q: %w", rec[1], err)
		}
		row.DeviceID = id
		rows = append(rows, row)
	}
	return rows, nil
}
