package client

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/manaskarra/pdash/api/dataset"
	"github.com/manaskarra/pdash/api/handlers"
)

// PageSize is the fixed partner list page size.
const PageSize = 30

// Panel is one panel's data, loading flag and error slot. Each panel is
// its own unit of consistency: a slow or failing panel never blocks or
// corrupts its siblings.
//
// Concurrent loads are reconciled last-request-wins: every load takes a
// sequence number and cancels the previous in-flight request, and a
// response only lands if its sequence is still current. A stale response
// that outruns its cancellation is dropped, never applied.
type Panel[T any] struct {
	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	data    T
	loading bool
	err     error
}

// begin starts a new load: supersedes and cancels any in-flight one and
// returns the context and sequence for this attempt.
func (p *Panel[T]) begin(ctx context.Context) (context.Context, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.seq++
	p.loading = true
	return ctx, p.seq
}

// finish applies a load result. Superseded results are dropped; the
// return value reports whether this result landed.
func (p *Panel[T]) finish(seq uint64, data T, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		return false
	}
	p.loading = false
	if err != nil {
		p.err = err
		return true
	}
	p.data, p.err = data, nil
	return true
}

// Data returns the last applied result.
func (p *Panel[T]) Data() T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

// Loading reports whether a load is in flight.
func (p *Panel[T]) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Err returns the error from the last applied load, nil after a success.
func (p *Panel[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// loadPanel runs one fetch through a panel's begin/finish cycle.
func loadPanel[T any](ctx context.Context, p *Panel[T], fetch func(context.Context) (T, error)) error {
	fetchCtx, seq := p.begin(ctx)
	data, err := fetch(fetchCtx)
	p.finish(seq, data, err)
	return err
}

// ListView owns the partner list's filter, sort and pagination state and
// the panels around it. All state transitions go through its methods so
// the reset rules hold: any filter or sort change returns to page 1, and
// a page change never touches filters or sort.
type ListView struct {
	api *Client

	mu      sync.Mutex
	filters FilterSet
	sort    SortSpec
	page    PageState

	Partners      Panel[*dataset.PartnerList]
	Overview      Panel[*dataset.Overview]
	Options       Panel[*dataset.FilterOptions]
	TierAnalytics Panel[*dataset.TierAnalytics]
	AppFunnel     Panel[*handlers.ApplicationFunnelResponse]
}

// NewListView creates a list view with no filters, no sort and page 1.
func NewListView(api *Client) *ListView {
	return &ListView{
		api:     api,
		filters: NewFilterSet(),
		page:    PageState{Page: 1, PageSize: PageSize},
	}
}

// Filters returns the active filter set.
func (v *ListView) Filters() FilterSet {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filters
}

// Sort returns the active sort spec.
func (v *ListView) Sort() SortSpec {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sort
}

// Page returns the pagination state.
func (v *ListView) Page() PageState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.page
}

// ApplyFilter sets or clears one filter, resets to page 1 and refetches
// the list with the existing sort.
func (v *ListView) ApplyFilter(ctx context.Context, key, value string) error {
	v.mu.Lock()
	v.filters = v.filters.With(key, value)
	v.page.Page = 1
	v.mu.Unlock()
	return v.fetchList(ctx)
}

// ClearFilters removes every filter, resets to page 1 and refetches.
func (v *ListView) ClearFilters(ctx context.Context) error {
	v.mu.Lock()
	v.filters = NewFilterSet()
	v.page.Page = 1
	v.mu.Unlock()
	return v.fetchList(ctx)
}

// ChangeSort applies the sort flip rule, resets to page 1 and refetches
// with the existing filters.
func (v *ListView) ChangeSort(ctx context.Context, field string) error {
	v.mu.Lock()
	v.sort = ChangeSort(v.sort, field)
	v.page.Page = 1
	v.mu.Unlock()
	return v.fetchList(ctx)
}

// ChangePage moves to page n, clamped into bounds. Filters and sort are
// untouched; landing on the current page skips the fetch.
func (v *ListView) ChangePage(ctx context.Context, n int) error {
	v.mu.Lock()
	next := v.page.WithPage(n)
	if next.Page == v.page.Page {
		v.mu.Unlock()
		return nil
	}
	v.page = next
	v.mu.Unlock()
	return v.fetchList(ctx)
}

// listQuery builds the partner list request parameters from the current
// state.
func (v *ListView) listQuery() url.Values {
	v.mu.Lock()
	defer v.mu.Unlock()

	q := url.Values{}
	v.filters.apply(q)
	if v.sort.Field != "" {
		q.Set("sort_by", v.sort.Field)
		q.Set("sort_order", string(v.sort.Direction))
	}
	q.Set("limit", strconv.Itoa(v.page.PageSize))
	q.Set("offset", strconv.Itoa(v.page.Offset()))
	return q
}

// fetchList loads the partner page for the current parameters. The
// response replaces the stored page wholesale; a response superseded by
// a newer fetch is dropped and does not update the total count either.
func (v *ListView) fetchList(ctx context.Context) error {
	query := v.listQuery()

	fetchCtx, seq := v.Partners.begin(ctx)
	list, err := v.api.Partners(fetchCtx, query)
	if !v.Partners.finish(seq, list, err) {
		return nil
	}
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.page.TotalCount = list.TotalCount
	v.mu.Unlock()
	return nil
}

// RefreshList refetches the partner list with unchanged parameters.
func (v *ListView) RefreshList(ctx context.Context) error {
	return v.fetchList(ctx)
}

// LoadAll fetches every panel concurrently. Each panel keeps its own
// error; the combined error is only a convenience for callers that want
// to know something failed.
func (v *ListView) LoadAll(ctx context.Context) error {
	// Deliberately not errgroup.WithContext: one panel failing must not
	// cancel its siblings.
	var g errgroup.Group

	g.Go(func() error { return v.fetchList(ctx) })
	g.Go(func() error {
		return loadPanel(ctx, &v.Overview, v.api.Overview)
	})
	g.Go(func() error {
		return loadPanel(ctx, &v.Options, v.api.FilterOptions)
	})
	g.Go(func() error {
		return loadPanel(ctx, &v.TierAnalytics, v.api.TierAnalytics)
	})
	g.Go(func() error {
		return loadPanel(ctx, &v.AppFunnel, func(ctx context.Context) (*handlers.ApplicationFunnelResponse, error) {
			return v.api.ApplicationFunnel(ctx, "all", nil)
		})
	})
	return g.Wait()
}

// SnapshotState captures the view state for a navigation into a detail
// view. scrollOffset is whatever position the caller wants restored.
func (v *ListView) SnapshotState(scrollOffset int) *NavigationSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return &NavigationSnapshot{
		Filters:      v.filters,
		Sort:         v.sort,
		Page:         v.page.Page,
		ScrollOffset: scrollOffset,
	}
}

// Restore applies a navigation snapshot: filters, sort and page land
// atomically, then exactly one fetch runs with the restored parameters.
// The snapshot is consumed; a second Restore with the same snapshot is a
// no-op. Returns the scroll offset to re-apply after render and whether
// the snapshot was actually used.
func (v *ListView) Restore(ctx context.Context, snap *NavigationSnapshot) (scrollOffset int, restored bool, err error) {
	if !snap.take() {
		return 0, false, nil
	}

	v.mu.Lock()
	v.filters = snap.Filters
	v.sort = snap.Sort
	page := snap.Page
	if page < 1 {
		page = 1
	}
	v.page = PageState{Page: page, PageSize: PageSize, TotalCount: v.page.TotalCount}
	v.mu.Unlock()

	return snap.ScrollOffset, true, v.fetchList(ctx)
}
