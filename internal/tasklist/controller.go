// Package tasklist drives the task list screen: filter state, pagination,
// fetching through the gateway, and the per-row status toggle. The
// controller holds the canonical view state; the UI layer renders whatever
// Snapshot returns.
package tasklist

import (
	"context"
	"sync"

	"github.com/hoangnv-dev/taskhub/internal/gateway"
	"github.com/hoangnv-dev/taskhub/internal/tasks"
)

// Snapshot is a read-only copy of the controller's view state.
type Snapshot struct {
	Items      []tasks.Task
	Total      int
	Page       int
	TotalPages int
	Loading    bool
	Err        error
}

// Controller owns the list screen's state. All methods are safe for
// concurrent use; fetches that lose a race against a newer filter or page
// change are discarded instead of clobbering fresher results.
type Controller struct {
	gw gateway.Gateway

	mu       sync.Mutex
	ownerID  string
	status   string
	priority string
	deadline string
	search   string
	page     int
	pageSize int

	// seq stamps the filter state. A fetch only applies its results if
	// seq hasn't moved while it was in flight.
	seq uint64

	items    []tasks.Task
	total    int
	loading  bool
	lastErr  error
	updating map[string]bool
	closed   bool
}

// NewController creates a list controller. Both dropdown filters start on
// the show-everything sentinel and the view on page one. The list stays
// inert until SetOwner reports a signed-in user.
func NewController(gw gateway.Gateway, pageSize int) *Controller {
	if pageSize <= 0 {
		pageSize = tasks.DefaultPageSize
	}
	return &Controller{
		gw:       gw,
		status:   tasks.FilterAll,
		priority: tasks.FilterAll,
		page:     1,
		pageSize: pageSize,
		items:    []tasks.Task{},
		updating: make(map[string]bool),
	}
}

// SetOwner tells the controller whose tasks it is showing. An empty ID
// disables fetching (the identity isn't known yet).
func (c *Controller) SetOwner(ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ownerID == ownerID {
		return
	}
	c.ownerID = ownerID
	c.seq++
}

// SetSearch updates the title search and jumps back to page one.
func (c *Controller) SetSearch(search string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.search == search {
		return
	}
	c.search = search
	c.page = 1
	c.seq++
}

// SetStatus updates the status filter and jumps back to page one.
func (c *Controller) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == status {
		return
	}
	c.status = status
	c.page = 1
	c.seq++
}

// SetPriority updates the priority filter and jumps back to page one.
func (c *Controller) SetPriority(priority string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.priority == priority {
		return
	}
	c.priority = priority
	c.page = 1
	c.seq++
}

// SetDeadline updates the exact-date filter. Unlike the other filters it
// keeps the current page.
func (c *Controller) SetDeadline(deadline string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deadline == deadline {
		return
	}
	c.deadline = deadline
	c.seq++
}

// NextPage advances one page. On the last page (or with no results) it
// does nothing.
func (c *Controller) NextPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page >= c.totalPagesLocked() {
		return
	}
	c.page++
	c.seq++
}

// PrevPage goes back one page. On the first page it does nothing.
func (c *Controller) PrevPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page <= 1 {
		return
	}
	c.page--
	c.seq++
}

// Refresh fetches the page described by the current filters. If the
// filters change while the fetch is in flight, the stale results are
// thrown away. Refreshing a closed or ownerless controller is a no-op.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.ownerID == "" {
		c.mu.Unlock()
		return nil
	}
	seq := c.seq
	filter := tasks.ListFilter{
		Status:   c.status,
		Priority: c.priority,
		Deadline: c.deadline,
		Search:   c.search,
		Page:     c.page,
		PageSize: c.pageSize,
	}
	c.loading = true
	c.mu.Unlock()

	page, err := c.gw.SelectTasks(ctx, filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.seq != seq {
		// A newer fetch owns the view now.
		return nil
	}

	c.loading = false
	c.lastErr = err
	if err != nil {
		return err
	}
	c.items = page.Items
	c.total = page.Total
	return nil
}

// ToggleStatus flips a task between Done and To Do, then refetches the
// current page so the row reflects the server's answer. While the update is
// in flight the task is marked busy so a second toggle is ignored.
func (c *Controller) ToggleStatus(ctx context.Context, taskID string) error {
	c.mu.Lock()
	if c.closed || c.updating[taskID] {
		c.mu.Unlock()
		return nil
	}

	var target *tasks.Task
	for i := range c.items {
		if c.items[i].ID == taskID {
			target = &c.items[i]
			break
		}
	}
	if target == nil {
		c.mu.Unlock()
		return nil
	}

	newStatus := tasks.StatusDone
	if target.Status == tasks.StatusDone {
		newStatus = tasks.StatusTodo
	}
	input := tasks.UpdateInput{
		Title:       target.Title,
		Description: target.Description,
		Deadline:    target.Deadline.Format("2006-01-02"),
		Priority:    target.Priority,
		Status:      newStatus,
		Checklist:   target.Checklist,
	}

	c.updating[taskID] = true
	c.mu.Unlock()

	_, err := c.gw.UpdateTask(ctx, taskID, input)

	c.mu.Lock()
	delete(c.updating, taskID)
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// IsUpdating reports whether a toggle for the task is still in flight.
func (c *Controller) IsUpdating(taskID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updating[taskID]
}

// Snapshot returns a copy of the current view state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]tasks.Task, len(c.items))
	copy(items, c.items)

	return Snapshot{
		Items:      items,
		Total:      c.total,
		Page:       c.page,
		TotalPages: c.totalPagesLocked(),
		Loading:    c.loading,
		Err:        c.lastErr,
	}
}

// Close permanently disables the controller. Every later call is a no-op;
// results from fetches still in flight are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.seq++
}

// totalPagesLocked computes ceil(total / pageSize); zero when there are no
// results. Callers must hold the mutex.
func (c *Controller) totalPagesLocked() int {
	if c.total <= 0 {
		return 0
	}
	return (c.total + c.pageSize - 1) / c.pageSize
}
