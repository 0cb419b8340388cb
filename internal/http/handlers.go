package http

import (
	"net/http"
	"time"

	"forestgrant/internal/core"
	"forestgrant/internal/finance"
	applog "forestgrant/internal/log"
)

type applicationResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toApplicationResponse(app core.Application) applicationResponse {
	return applicationResponse{
		ID:        app.ID.String(),
		Status:    string(app.Status),
		CreatedAt: app.CreatedAt,
		UpdatedAt: app.UpdatedAt,
	}
}

type financialResponse struct {
	FinancialInformation *finance.View `json:"financial_information"`
	SectionComplete      bool          `json:"section_complete"`
}

type financialSaveResponse struct {
	FinancialInformation *finance.View       `json:"financial_information"`
	SectionComplete      bool                `json:"section_complete"`
	Errors               finance.FieldErrors `json:"errors"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.ListBudgetCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []core.BudgetCategory{}
	}
	OK().Data(cats).Write(w, r)
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	app, err := s.apps.CreateDraft(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK().Status(http.StatusCreated).
		Message("Application created").
		Data(toApplicationResponse(app)).
		Write(w, r)
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	apps, err := s.apps.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]applicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, toApplicationResponse(app))
	}
	OK().Data(out).Write(w, r)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	app, err := s.apps.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	OK().Data(toApplicationResponse(app)).Write(w, r)
}

func (s *Server) handleGetFinancial(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	res, err := s.financial.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := OK().Data(financialResponse{
		FinancialInformation: res.Info,
		SectionComplete:      res.SectionComplete,
	})
	if res.Info == nil {
		resp.Message("No financial information yet")
	}
	resp.Write(w, r)
}

func (s *Server) handlePutFinancial(w http.ResponseWriter, r *http.Request) {
	userID, err := userFromRequest(r)
	if err != nil {
		writeUnauthorized(w, r)
		return
	}
	payload, err := decodePayload(w, r)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rejected financial information body",
			applog.FieldApplicationID, r.PathValue("id"),
			applog.FieldError, err)
		writeDecodeError(w, r, err)
		return
	}

	res, err := s.financial.Put(r.Context(), r.PathValue("id"), userID, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	errs := res.Errors
	if errs.Empty() {
		errs = nil
	}
	OK().Message("Financial information saved").
		Data(financialSaveResponse{
			FinancialInformation: res.Info,
			SectionComplete:      res.SectionComplete,
			Errors:               errs,
		}).
		Write(w, r)
}
