// Package itemlist drives the item table: loading, the create and edit
// entry points into the form, guarded deletion and reloads.
package itemlist

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/erazemk/katalog/internal/client"
	"github.com/erazemk/katalog/internal/confirm"
	"github.com/erazemk/katalog/internal/flash"
	"github.com/erazemk/katalog/internal/itemform"
	"github.com/erazemk/katalog/internal/logging"
	"github.com/erazemk/katalog/internal/metrics"
	"github.com/erazemk/katalog/internal/modal"
	"github.com/erazemk/katalog/internal/model"
)

// DefaultReloadDelay is the gap between a modal close and the reload it
// triggers.
const DefaultReloadDelay = 500 * time.Millisecond

// Delete prompt.
const (
	DeleteTitle   = "Delete item"
	DeleteMessage = "Are you sure you want to delete this item? This action cannot be undone."
	DeleteConfirm = "Delete"
	MsgDeleted    = "Item deleted successfully"
)

// Reload triggers, as reported to metrics.
const (
	TriggerCompletion = "completion"
	TriggerModalClose = "modal_close"
	TriggerDelete     = "delete"
)

// ItemStore reads and deletes items.
type ItemStore interface {
	List(ctx context.Context) ([]model.Item, error)
	Delete(ctx context.Context, id string) error
}

// FormPrimer is the part of the item form the list drives.
type FormPrimer interface {
	Hydrate(item *model.Item)
	Subscribe(fn func(itemform.Completion)) (unsubscribe func())
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Open(cfg confirm.Config) <-chan bool
}

// Options configures a Controller.
type Options struct {
	Items       ItemStore
	Form        FormPrimer
	Modal       *modal.Coordinator
	Confirm     Confirmer
	Flash       *flash.Banner
	ReloadDelay time.Duration
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// State is a snapshot for rendering.
type State struct {
	Items   []model.Item
	Loading bool
	Error   string
	Flash   flash.Message
}

// DeleteOutcome reports how a delete request ended. Confirmed is false
// when the operator declined.
type DeleteOutcome struct {
	Confirmed bool
	Err       error
}

// Controller owns the item list. It is safe for concurrent use.
type Controller struct {
	store       ItemStore
	form        FormPrimer
	modal       *modal.Coordinator
	confirm     Confirmer
	flash       *flash.Banner
	reloadDelay time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	items       []model.Item
	inflight    int
	errMsg      string
	modalOpen   bool
	reloadedNow bool
	reloadTimer *time.Timer
	closed      bool
	unsubscribe []func()
}

// New creates a controller and starts following the modal and the form.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	delay := opts.ReloadDelay
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	banner := opts.Flash
	if banner == nil {
		banner = flash.New(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		store:       opts.Items,
		form:        opts.Form,
		modal:       opts.Modal,
		confirm:     opts.Confirm,
		flash:       banner,
		reloadDelay: delay,
		logger:      logger.With("component", "itemlist"),
		metrics:     opts.Metrics,
		ctx:         ctx,
		cancel:      cancel,
	}
	c.unsubscribe = []func(){
		c.modal.Subscribe(c.onModal),
		c.form.Subscribe(c.onCompletion),
	}
	return c
}

// Load fetches the whole collection. Overlapping loads are not
// deduplicated; whichever response arrives last is shown. The list
// reports loading until every overlapping load has finished.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return context.Canceled
	}
	c.inflight++
	c.errMsg = ""
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	items, err := c.store.List(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if err != nil {
		c.errMsg = client.Message(err)
		c.logger.Error("loading items", "error", err)
		return err
	}
	c.items = items
	return nil
}

// RequestCreate opens the form empty.
func (c *Controller) RequestCreate() {
	c.form.Hydrate(nil)
	c.modal.Open()
}

// RequestEdit opens the form on item.
func (c *Controller) RequestEdit(item model.Item) {
	c.form.Hydrate(&item)
	c.modal.Open()
}

// RequestDelete asks for confirmation and deletes the item when the
// operator agrees. It returns at once; the outcome is delivered on the
// returned channel, which is closed afterwards. An empty id does nothing.
func (c *Controller) RequestDelete(id string) <-chan DeleteOutcome {
	out := make(chan DeleteOutcome, 1)
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if id == "" || closed {
		close(out)
		return out
	}

	answer := c.confirm.Open(confirm.Config{
		Title:       DeleteTitle,
		Message:     DeleteMessage,
		ConfirmText: DeleteConfirm,
	})
	if !c.goBackground(func() {
		defer close(out)
		out <- c.deleteAfter(answer, id)
	}) {
		close(out)
	}
	return out
}

func (c *Controller) deleteAfter(answer <-chan bool, id string) DeleteOutcome {
	var yes bool
	select {
	case yes = <-answer:
	case <-c.ctx.Done():
		return DeleteOutcome{Err: c.ctx.Err()}
	}
	if !yes {
		return DeleteOutcome{}
	}

	if err := c.store.Delete(c.ctx, id); err != nil {
		c.logger.Error("deleting item", "id", id, "error", err)
		c.flash.Error(client.Message(err))
		return DeleteOutcome{Confirmed: true, Err: err}
	}

	c.logger.Info("item deleted", "id", id)
	c.flash.Success(MsgDeleted)
	c.reload(TriggerDelete)
	return DeleteOutcome{Confirmed: true}
}

// onCompletion reloads right away after a mutation the backend accepted.
func (c *Controller) onCompletion(done itemform.Completion) {
	if !done.OK() {
		return
	}

	c.mu.Lock()
	if c.modalOpen {
		c.reloadedNow = true
	}
	c.mu.Unlock()

	c.goBackground(func() { c.reload(TriggerCompletion) })
}

// onModal schedules a reload after every open to closed transition,
// unless a completion already reloaded during that open cycle.
func (c *Controller) onModal(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasOpen := c.modalOpen
	c.modalOpen = open
	switch {
	case open && !wasOpen:
		c.reloadedNow = false
	case !open && wasOpen:
		if c.reloadedNow || c.closed {
			return
		}
		if c.reloadTimer != nil {
			c.reloadTimer.Stop()
		}
		c.reloadTimer = time.AfterFunc(c.reloadDelay, func() {
			c.goBackground(func() { c.reload(TriggerModalClose) })
		})
	}
}

func (c *Controller) reload(trigger string) {
	c.metrics.ObserveReload(trigger)
	_ = c.Load(c.ctx)
}

// goBackground runs fn on a tracked goroutine unless the controller is
// closed.
func (c *Controller) goBackground(fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
	return true
}

// State returns a snapshot of the list.
func (c *Controller) State() State {
	c.mu.Lock()
	st := State{
		Items:   slices.Clone(c.items),
		Loading: c.inflight > 0,
		Error:   c.errMsg,
	}
	c.mu.Unlock()
	st.Flash = c.flash.Current()
	return st
}

// Close tears the controller down and waits for background work.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.reloadTimer != nil {
		c.reloadTimer.Stop()
		c.reloadTimer = nil
	}
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
	c.cancel()
	c.wg.Wait()
}
