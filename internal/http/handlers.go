package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"pettycash/internal/attach"
	"pettycash/internal/core"
	"pettycash/internal/export"
	"pettycash/internal/importer"
	"pettycash/internal/ledger"
	"pettycash/internal/services"
	"pettycash/internal/store"
)

const maxUploadBytes = 10 << 20 // 10 MiB for attachments and imports

// cashbookView is the data rendered by the index template. It is cached per
// period when no display filters are active.
type cashbookView struct {
	Period     core.Period
	PrevPeriod core.Period
	NextPeriod core.Period
	Cashbook   core.Cashbook
	Categories []core.CategoryTotal
	Version    string

	Filtered   bool
	FilterIn   core.Money
	FilterOut  core.Money
	FilterRows []core.CashbookRow

	BaseCategories    []string
	Modes             []string
	RemarkSuggestions []string
	Today             string
	Flash             string
	FlashError        string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	p, err := parsePeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter, filtered := parseRowFilter(r)

	var view cashbookView
	cached := false
	if !filtered {
		view, cached = s.cashbookCache.Get(p.Key())
	}
	if !cached {
		cb, version, err := s.ledger.Cashbook(r.Context(), p, nil)
		if err != nil {
			slog.ErrorContext(r.Context(), "Cashbook load error", "error", err, "period", p.Key())
			http.Error(w, "could not load cashbook", http.StatusInternalServerError)
			return
		}
		txs := make([]core.Transaction, 0, len(cb.Rows))
		for _, row := range cb.Rows {
			txs = append(txs, row.Transaction)
		}
		view = cashbookView{
			Period:     p,
			PrevPeriod: p.Previous(),
			NextPeriod: nextPeriod(p),
			Cashbook:   cb,
			Categories: core.SummarizeCategories(txs),
			Version:    version,
		}
		if !filtered {
			s.cashbookCache.Set(p.Key(), view)
		}
	}

	if filtered {
		rows, in, out := core.FilterRows(view.Cashbook.Rows, filter)
		view.Filtered = true
		view.FilterRows = rows
		view.FilterIn = in
		view.FilterOut = out
	}

	view.BaseCategories = core.BaseCategories
	view.Modes = []string{core.ModeCash, core.ModeBank, core.ModeUPI}
	view.RemarkSuggestions = remarkSuggestions(view.Cashbook.Rows)
	view.Today = time.Now().Format("2006-01-02")
	view.Flash = r.URL.Query().Get("msg")
	view.FlashError = r.URL.Query().Get("err")

	if err := s.templates.ExecuteTemplate(w, "index.html", view); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// remarkSuggestions collects the period's distinct remarks for the entry
// form's autocomplete list, preserving first-seen order.
func remarkSuggestions(rows []core.CashbookRow) []string {
	seen := make(map[string]struct{}, len(rows))
	var out []string
	for _, row := range rows {
		if row.Remark == "" {
			continue
		}
		if _, ok := seen[row.Remark]; ok {
			continue
		}
		seen[row.Remark] = struct{}{}
		out = append(out, row.Remark)
	}
	return out
}

func nextPeriod(p core.Period) core.Period {
	if p.Month == 12 {
		return core.Period{Year: p.Year + 1, Month: 1}
	}
	return core.Period{Year: p.Year, Month: p.Month + 1}
}

// parseRowFilter reads the optional display filters from the query string.
func parseRowFilter(r *http.Request) (core.RowFilter, bool) {
	q := r.URL.Query()
	var f core.RowFilter
	active := false

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		if d, ok := core.ParseTxDate(v); ok {
			f.From = d.Time
			active = true
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if d, ok := core.ParseTxDate(v); ok {
			f.To = d.Time
			active = true
		}
	}
	if v := strings.TrimSpace(q.Get("remark")); v != "" {
		f.Remark = v
		active = true
	}
	for _, v := range q["category"] {
		if v = strings.TrimSpace(v); v != "" {
			f.Categories = append(f.Categories, v)
			active = true
		}
	}
	for _, v := range q["mode"] {
		if v = strings.TrimSpace(v); v != "" {
			f.Modes = append(f.Modes, v)
			active = true
		}
	}
	return f, active
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	date, _ := core.ParseTxDate(r.Form.Get("date"))
	remark := sanitizeInput(r.Form.Get("remark"))
	amountStr := strings.TrimSpace(r.Form.Get("amount"))

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		s.redirectWithError(w, r, date, "Invalid amount")
		return
	}

	input := services.AddEntryInput{
		Date:           date,
		Remark:         remark,
		Category:       sanitizeInput(r.Form.Get("category")),
		CustomCategory: sanitizeInput(r.Form.Get("custom_category")),
		Mode:           sanitizeInput(r.Form.Get("mode")),
		EntryType:      r.Form.Get("entry_type"),
		Amount:         core.Money{Cents: cents},
	}

	if file, header, err := r.FormFile("attachment"); err == nil {
		defer file.Close()
		ref, err := s.attachments.Save(file, header.Filename, date, remark)
		if err != nil {
			slog.WarnContext(r.Context(), "Attachment save failed", "error", err, "filename", header.Filename)
			s.redirectWithError(w, r, date, "Attachment rejected")
			return
		}
		input.AttachmentRef = ref
	}

	entry, err := s.ledger.AddEntry(r.Context(), input)
	if err != nil {
		slog.ErrorContext(r.Context(), "Add entry error", "error", err, "remark", remark)
		if input.AttachmentRef != "" {
			// The entry was never written; don't keep its orphaned file.
			_ = s.attachments.Remove(input.AttachmentRef)
		}
		s.redirectWithError(w, r, date, addEntryErrorMessage(err))
		return
	}

	s.cashbookCache.Clear()
	s.redirectWithMessage(w, r, entry.Date, "Entry saved: "+entry.Remark)
}

func addEntryErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrMissingRemark):
		return "Remark is required"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be greater than zero"
	case errors.Is(err, services.ErrInvalidEntryType):
		return "Select cash in or cash out"
	case errors.Is(err, store.ErrUnavailable):
		return "Data store unavailable, try again"
	default:
		return "Could not save entry"
	}
}

func (s *Server) handleDuplicateLast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	p, err := parsePeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := s.ledger.DuplicateLast(r.Context(), p)
	if err != nil {
		slog.ErrorContext(r.Context(), "Duplicate last entry error", "error", err, "period", p.Key())
		msg := "Could not duplicate entry"
		if errors.Is(err, services.ErrNoEntries) {
			msg = "Nothing to duplicate in " + p.String()
		}
		s.redirectToPeriod(w, r, p, "err", msg)
		return
	}

	s.cashbookCache.Clear()
	s.redirectWithMessage(w, r, entry.Date, "Duplicated: "+entry.Remark)
}

func (s *Server) handleEditPeriod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	p, err := parsePeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ids := r.Form["row_id"]
	dates := r.Form["date"]
	remarks := r.Form["remark"]
	categories := r.Form["category"]
	modes := r.Form["mode"]
	cashIns := r.Form["cash_in"]
	cashOuts := r.Form["cash_out"]

	for _, other := range [][]string{dates, remarks, categories, modes, cashIns, cashOuts} {
		if len(other) != len(ids) {
			http.Error(w, "edit form fields are misaligned", http.StatusBadRequest)
			return
		}
	}

	edits := make([]ledger.EditedRow, 0, len(ids))
	for i := range ids {
		d, _ := core.ParseTxDate(dates[i])
		edits = append(edits, ledger.EditedRow{
			ID:       ids[i],
			Date:     d,
			Remark:   sanitizeInput(remarks[i]),
			Category: sanitizeInput(categories[i]),
			Mode:     sanitizeInput(modes[i]),
			CashIn:   core.ParseAmount(cashIns[i]),
			CashOut:  core.ParseAmount(cashOuts[i]),
		})
	}

	version := r.Form.Get("version")
	if err := s.ledger.EditPeriod(r.Context(), p, version, edits); err != nil {
		slog.ErrorContext(r.Context(), "Edit period error", "error", err, "period", p.Key())
		s.mutationError(w, r, p, err, "Could not save changes")
		return
	}

	s.cashbookCache.Clear()
	s.redirectToPeriod(w, r, p, "msg", "Changes saved")
}

func (s *Server) handleDeletePeriod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	p, err := parsePeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.ledger.DeletePeriod(r.Context(), p); err != nil {
		slog.ErrorContext(r.Context(), "Delete period error", "error", err, "period", p.Key())
		s.mutationError(w, r, p, err, "Could not delete entries")
		return
	}

	s.cashbookCache.Clear()
	s.redirectToPeriod(w, r, p, "msg", "Deleted all entries of "+p.String())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	p, err := parsePeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.redirectToPeriod(w, r, p, "err", "Choose a CSV file to import")
		return
	}
	defer file.Close()

	batch, err := importer.NormalizeCSV(file)
	if err != nil {
		slog.ErrorContext(r.Context(), "Import parse error", "error", err, "period", p.Key())
		s.redirectToPeriod(w, r, p, "err", "Could not read the CSV file")
		return
	}

	replace := r.Form.Get("replace") == "on" || r.Form.Get("replace") == "true"
	if err := s.ledger.Import(r.Context(), p, batch, replace); err != nil {
		slog.ErrorContext(r.Context(), "Import error", "error", err, "period", p.Key(), "replace", replace)
		if errors.Is(err, ledger.ErrNoValidDates) {
			s.redirectToPeriod(w, r, p, "err", "Import rejected: no row has a valid date")
			return
		}
		s.mutationError(w, r, p, err, "Could not import the file")
		return
	}

	s.cashbookCache.Clear()
	mode := "appended to"
	if replace {
		mode = "replaced"
	}
	s.redirectToPeriod(w, r, p, "msg", fmt.Sprintf("Imported %d rows (%s %s)", len(batch), mode, p.String()))
}

// mutationError maps service failures to responses: conflicts send the user
// back to a fresh view, everything else is a plain server error.
func (s *Server) mutationError(w http.ResponseWriter, r *http.Request, p core.Period, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrVersionMismatch), errors.Is(err, ledger.ErrReconciliationConflict):
		s.cashbookCache.Clear()
		s.redirectToPeriod(w, r, p, "err", "The data changed while you were editing. Review and try again.")
	case errors.Is(err, store.ErrUnavailable):
		http.Error(w, "data store unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func (s *Server) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	report, ok := s.buildReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", attachmentDisposition(export.FileName(report.Period, "html")))
	if err := export.WriteHTML(w, report); err != nil {
		slog.ErrorContext(r.Context(), "HTML export error", "error", err, "period", report.Period.Key())
	}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := s.buildReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachmentDisposition(export.FileName(report.Period, "csv")))
	if err := export.WriteCSV(w, report); err != nil {
		slog.ErrorContext(r.Context(), "CSV export error", "error", err, "period", report.Period.Key())
	}
}

func (s *Server) handleExportAttachments(w http.ResponseWriter, r *http.Request) {
	report, ok := s.buildReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", attachmentDisposition(export.FileName(report.Period, "zip")))
	if _, err := export.WriteAttachmentsZip(w, report, s.attachments); err != nil {
		slog.ErrorContext(r.Context(), "Attachments export error", "error", err, "period", report.Period.Key())
	}
}

func (s *Server) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := s.buildReport(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, export.TextSummary(report))
}

func (s *Server) buildReport(w http.ResponseWriter, r *http.Request) (export.Report, bool) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return export.Report{}, false
	}
	p, err := parsePeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return export.Report{}, false
	}
	cb, _, err := s.ledger.Cashbook(r.Context(), p, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "Cashbook load error", "error", err, "period", p.Key())
		http.Error(w, "could not load cashbook", http.StatusInternalServerError)
		return export.Report{}, false
	}
	return export.NewReport(p, cb), true
}

func attachmentDisposition(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ref := path.Base(strings.TrimPrefix(r.URL.Path, "/attachments/"))
	f, err := s.attachments.Open(ref)
	if err != nil {
		if errors.Is(err, attach.ErrNotFound) || errors.Is(err, attach.ErrBadRef) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "Attachment open error", "error", err, "ref", ref)
		http.Error(w, "could not open attachment", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	_, _ = io.Copy(w, f)
}

func (s *Server) redirectWithMessage(w http.ResponseWriter, r *http.Request, d core.TxDate, msg string) {
	s.redirectToPeriod(w, r, currentPeriodFor(d), "msg", msg)
}

func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, d core.TxDate, msg string) {
	s.redirectToPeriod(w, r, currentPeriodFor(d), "err", msg)
}

func currentPeriodFor(d core.TxDate) core.Period {
	if d.IsEmpty() {
		now := time.Now()
		return core.Period{Year: now.Year(), Month: int(now.Month())}
	}
	return core.Period{Year: d.Year(), Month: int(d.Month())}
}

func (s *Server) redirectToPeriod(w http.ResponseWriter, r *http.Request, p core.Period, key, msg string) {
	q := url.Values{}
	q.Set("year", fmt.Sprint(p.Year))
	q.Set("month", fmt.Sprint(p.Month))
	if msg != "" {
		q.Set(key, msg)
	}
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusSeeOther)
}
