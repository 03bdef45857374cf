package cron

import (
	"context"
	"fmt"

	"github.com/harborline/pricing-service/pkg/logger"
)

type rateRefresher interface {
	RefreshRates(ctx context.Context) error
}

// RateRefreshJobParams configure the rate refresh job.
type RateRefreshJobParams struct {
	Logger *logger.Logger
	Rates  rateRefresher
}

// NewRateRefreshJob builds the job that re-pulls currency rates from the
// provider on every cron cycle.
func NewRateRefreshJob(params RateRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Rates == nil {
		return nil, fmt.Errorf("rates service required")
	}
	return &rateRefreshJob{
		logg:  params.Logger,
		rates: params.Rates,
	}, nil
}

type rateRefreshJob struct {
	logg  *logger.Logger
	rates rateRefresher
}

func (j *rateRefreshJob) Name() string { return "rate-refresh" }

func (j *rateRefreshJob) Run(ctx context.Context) error {
	if err := j.rates.RefreshRates(ctx); err != nil {
		return fmt.Errorf("rate refresh: %w", err)
	}
	j.logg.Info(ctx, "rate refresh complete")
	return nil
}
