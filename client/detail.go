package client

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/manaskarra/pdash/api/handlers"
)

// DetailView assembles one partner's detail page: the info/history record
// and the client funnel, fetched independently of any list state. The
// list view's NavigationSnapshot rides along so the caller can restore
// the list on the way back.
type DetailView struct {
	api       *Client
	partnerID string
	back      *NavigationSnapshot

	Info   Panel[*handlers.PartnerDetailResponse]
	Funnel Panel[*handlers.PartnerFunnelResponse]
}

// NewDetailView creates a detail view for one partner. back may be nil
// when the detail page was reached directly rather than from the list.
func NewDetailView(api *Client, partnerID string, back *NavigationSnapshot) *DetailView {
	return &DetailView{api: api, partnerID: partnerID, back: back}
}

// PartnerID returns the partner this view shows.
func (d *DetailView) PartnerID() string {
	return d.partnerID
}

// BackSnapshot returns the list state carried into this view, if any.
func (d *DetailView) BackSnapshot() *NavigationSnapshot {
	return d.back
}

// Load fetches the partner record and funnel concurrently. A funnel
// failure leaves its own panel in error without failing the record, and
// vice versa.
func (d *DetailView) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		return loadPanel(ctx, &d.Info, func(ctx context.Context) (*handlers.PartnerDetailResponse, error) {
			return d.api.PartnerDetail(ctx, d.partnerID)
		})
	})
	g.Go(func() error {
		return loadPanel(ctx, &d.Funnel, func(ctx context.Context) (*handlers.PartnerFunnelResponse, error) {
			return d.api.PartnerFunnel(ctx, d.partnerID)
		})
	})
	return g.Wait()
}

// NotFound reports whether the partner does not exist, which renders as
// an explicit empty state rather than an error.
func (d *DetailView) NotFound() bool {
	var apiErr *APIError
	return errors.As(d.Info.Err(), &apiErr) && apiErr.NotFound()
}

// Retry re-issues the fetches after a failure. Nothing retries
// automatically; this is the user-triggered path.
func (d *DetailView) Retry(ctx context.Context) error {
	return d.Load(ctx)
}
