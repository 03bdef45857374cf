package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/harborline/pricing-service/api/responses"
	"github.com/harborline/pricing-service/api/validators"
	"github.com/harborline/pricing-service/internal/pricing"
	pkgerrors "github.com/harborline/pricing-service/pkg/errors"
	"github.com/harborline/pricing-service/pkg/logger"
)

type quoteRequest struct {
	ProductID        string   `json:"productId" validate:"required,uuid"`
	Quantity         int      `json:"quantity" validate:"required,min=1"`
	CustomerGroupIDs []string `json:"customerGroupIds" validate:"omitempty,dive,uuid"`
	Currency         string   `json:"currency" validate:"omitempty,len=3"`
	VariantID        string   `json:"variantId" validate:"omitempty,uuid"`
}

type batchQuoteRequest struct {
	ProductIDs       []string `json:"productIds" validate:"required,min=1,dive,uuid"`
	Quantity         int      `json:"quantity" validate:"required,min=1"`
	CustomerGroupIDs []string `json:"customerGroupIds" validate:"omitempty,dive,uuid"`
	Currency         string   `json:"currency" validate:"omitempty,len=3"`
	VariantID        string   `json:"variantId" validate:"omitempty,uuid"`
}

// Quote resolves the effective price for a single product.
func Quote(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var req quoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}
		opts, err := buildOptions(req.CustomerGroupIDs, req.Currency, req.VariantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithProductID(ctx, productID.String())
		}

		resolved, err := svc.CalculatePrice(ctx, productID, req.Quantity, *opts)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolved)
	}
}

// QuoteBatch resolves prices for multiple products; products that cannot be
// priced are omitted from the response.
func QuoteBatch(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		var req batchQuoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productIDs := make([]uuid.UUID, 0, len(req.ProductIDs))
		for _, raw := range req.ProductIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			productIDs = append(productIDs, id)
		}
		opts, err := buildOptions(req.CustomerGroupIDs, req.Currency, req.VariantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolved, err := svc.CalculatePrices(r.Context(), productIDs, req.Quantity, *opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make(map[string]*pricing.ResolvedPrice, len(resolved))
		for id, price := range resolved {
			out[id.String()] = price
		}
		responses.WriteSuccess(w, out)
	}
}

func buildOptions(groupIDs []string, currency, variantID string) (*pricing.Options, error) {
	opts := pricing.Options{Currency: currency}
	for _, raw := range groupIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer group id")
		}
		opts.CustomerGroupIDs = append(opts.CustomerGroupIDs, id)
	}
	if variantID != "" {
		id, err := uuid.Parse(variantID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id")
		}
		opts.VariantID = &id
	}
	return &opts, nil
}
