// internal/app/features/logs/export.go
package logs

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tangra/visitortrack/internal/app/system/timeouts"
	"github.com/tangra/visitortrack/internal/domain/models"
	"go.uber.org/zap"
)

// exportPageSize is the fetch batch size used when streaming the full log.
const exportPageSize = 1000

// Export handles GET /api/logs/export requests and streams the full visit
// log as CSV, newest first.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	filename := fmt.Sprintf("visit_log_%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))

	// UTF-8 BOM for Excel
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		h.logger.Error("CSV write failed (BOM)", zap.Error(err))
		return
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	defer cw.Flush()

	if err := cw.Write([]string{"id", "ts", "email", "ip", "event", "url", "ua"}); err != nil {
		h.logger.Error("CSV write failed (header)", zap.Error(err))
		return
	}

	var written int
	for page := int64(1); ; page++ {
		events, _, err := h.events.ListPage(ctx, page, exportPageSize)
		if err != nil {
			h.errLog.Log(r, "fetch events for export failed", err)
			return
		}
		for _, ev := range events {
			if err := cw.Write(csvRow(ev)); err != nil {
				h.logger.Error("CSV write failed (row)", zap.Error(err))
				return
			}
			written++
		}
		if int64(len(events)) < exportPageSize {
			break
		}
	}

	h.logger.Info("visit log CSV exported", zap.Int("rows", written))
}

func csvRow(ev models.Event) []string {
	email := ""
	if ev.Email != nil {
		email = *ev.Email
	}
	return []string{
		ev.ID.Hex(),
		ev.Timestamp.UTC().Format(time.RFC3339),
		sanitizeCSVField(email),
		ev.IPString(),
		string(ev.Kind),
		sanitizeCSVField(ev.URL),
		sanitizeCSVField(ev.UserAgent),
	}
}

// sanitizeCSVField guards against formula injection when the export is
// opened in a spreadsheet.
func sanitizeCSVField(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}
