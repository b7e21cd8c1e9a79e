package http

import (
	"errors"
	"net/http"

	"asrama/internal/core"
	applog "asrama/internal/log"
)

type financePage struct {
	Form     core.FinancialRecord
	Errors   core.FieldErrors
	Months   []string
	Incoming string
	Outgoing string
	Totals   core.Totals
	Records  []core.FinancialRecord
	// Unknown counts records whose month name is not in the calendar.
	Unknown int
}

func (s *Server) renderFinance(w http.ResponseWriter, r *http.Request, status int, page financePage) {
	records, err := s.finance.List(r.Context())
	if err != nil {
		s.fail(w, r, "List finance failed", err)
		return
	}
	page.Records = records
	page.Months = core.Months()
	for _, f := range records {
		if !f.KnownMonth() {
			page.Unknown++
			continue
		}
		page.Totals.Incoming += f.Incoming
		page.Totals.Outgoing += f.Outgoing
	}
	if id := editID(r); id > 0 && page.Form.ID == 0 {
		for _, f := range records {
			if f.ID == id {
				page.Form = f
				page.Incoming = core.FormatRupiah(f.Incoming)
				page.Outgoing = core.FormatRupiah(f.Outgoing)
			}
		}
	}
	if page.Form.Year == 0 && page.Errors == nil {
		page.Form.Year = s.now().In(s.loc).Year()
	}
	s.renderPage(w, r, status, "admin_finance", View{Data: page})
}

func (s *Server) handleAdminFinance(w http.ResponseWriter, r *http.Request) {
	s.renderFinance(w, r, http.StatusOK, financePage{})
}

func (s *Server) handleCreateFinance(w http.ResponseWriter, r *http.Request) {
	s.saveFinance(w, r, 0)
}

func (s *Server) handleUpdateFinance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.saveFinance(w, r, id)
}

func (s *Server) saveFinance(w http.ResponseWriter, r *http.Request, id int64) {
	ctx := r.Context()
	form, errs := decodeFinance(r)
	form.Record.ID = id
	if errs != nil {
		s.renderFinance(w, r, http.StatusUnprocessableEntity, financePage{
			Form:     form.Record,
			Errors:   errs,
			Incoming: form.Incoming,
			Outgoing: form.Outgoing,
		})
		return
	}

	var (
		rec core.FinancialRecord
		err error
	)
	if id == 0 {
		rec, err = s.finance.Create(ctx, form.Record)
	} else {
		rec, err = s.finance.Update(ctx, form.Record)
	}
	if err != nil {
		var fe core.FieldErrors
		if errors.As(err, &fe) {
			s.renderFinance(w, r, http.StatusUnprocessableEntity, financePage{
				Form: form.Record, Errors: fe, Incoming: form.Incoming, Outgoing: form.Outgoing,
			})
			return
		}
		s.fail(w, r, "Save finance failed", err)
		return
	}
	s.logger.InfoContext(ctx, "Finance record saved",
		applog.NewFields().
			WithOperation(operation(id)).
			WithFinance(rec.Month, rec.Year, rec.Incoming, rec.Outgoing).
			ToSlice()...)
	saved(w, r, "/admin/keuangan", "tersimpan")
}

func (s *Server) handleDeleteFinance(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "ID tidak valid.").Write(w)
		return
	}
	if err := s.finance.Delete(r.Context(), id); err != nil {
		s.fail(w, r, "Delete finance failed", err)
		return
	}
	deleted(w, "keuangan", id)
}
