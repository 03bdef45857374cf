package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborline/pricing-service/api/responses"
	"github.com/harborline/pricing-service/internal/rates"
	pkgerrors "github.com/harborline/pricing-service/pkg/errors"
	"github.com/harborline/pricing-service/pkg/logger"
)

// ListCurrencies returns every known currency rate.
func ListCurrencies(svc rates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rates service unavailable"))
			return
		}

		rows, err := svc.GetAllRates(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// GetCurrency returns the rate for one currency code.
func GetCurrency(svc rates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rates service unavailable"))
			return
		}

		code := chi.URLParam(r, "code")
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithCurrency(ctx, code)
		}

		row, err := svc.GetRate(ctx, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

// RefreshCurrencies forces a rate refresh from the provider.
func RefreshCurrencies(svc rates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rates service unavailable"))
			return
		}

		if err := svc.RefreshRates(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "refreshed"})
	}
}
