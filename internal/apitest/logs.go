package apitest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	deviceID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "device_not_found")
		return
	}
	q := r.URL.Query()
	format := q.Get("format")

	limit := 10
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 || (format != "pdf" && limit != 5 && limit != 10 && limit != 20) {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
	}
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	s.mu.Lock()
	d, ok := s.devices[deviceID]
	if !ok || d.tenantID != p.tenantID {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "device_not_found")
		return
	}
	var lines []logLine
	for _, l := range s.logs {
		if l.deviceID == deviceID && inRange(l.at, from, to) {
			lines = append(lines, *l)
		}
	}
	deviceName := d.name
	s.mu.Unlock()

	sort.Slice(lines, func(i, j int) bool { return lines[i].at.After(lines[j].at) })
	if len(lines) > limit {
		lines = lines[:limit]
	}

	switch format {
	case "csv":
		writeCSV(w, deviceID, lines)
	case "pdf":
		writePDF(w, deviceName, lines)
	default:
		out := make([]map[string]any, 0, len(lines))
		for _, l := range lines {
			out = append(out, map[string]any{
				"id":               l.id,
				"raw_log":          l.raw,
				"log_level":        l.level,
				"timestamp_equipo": l.at.Format(time.RFC3339),
				"created_at":       l.createdAt.Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeCSV(w http.ResponseWriter, deviceID int64, lines []logLine) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"timestamp_equipo", "device_id", "raw_log"})
	for _, l := range lines {
		_ = cw.Write([]string{l.at.Format(time.RFC3339), strconv.FormatInt(deviceID, 10), l.raw})
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=logs_device_%d.csv", deviceID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// writePDF renders a single-page text document.
func writePDF(w http.ResponseWriter, title string, lines []logLine) {
	var text strings.Builder
	fmt.Fprintf(&text, "BT /F1 10 Tf 40 800 Td 14 TL (%s) Tj\n", pdfEscape("Logs "+title))
	for _, l := range lines {
		fmt.Fprintf(&text, "T* (%s) Tj\n", pdfEscape(l.at.Format(time.RFC3339)+" "+l.raw))
	}
	text.WriteString("ET")
	stream := text.String()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func pdfEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`, "\n", " ", "\r", " ")
	return r.Replace(s)
}
