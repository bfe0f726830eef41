// Package itemform drives the create/edit item form: the draft, the
// pending photo, validation and submission.
package itemform

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/erazemk/katalog/internal/client"
	"github.com/erazemk/katalog/internal/imaging"
	"github.com/erazemk/katalog/internal/logging"
	"github.com/erazemk/katalog/internal/metrics"
	"github.com/erazemk/katalog/internal/modal"
	"github.com/erazemk/katalog/internal/model"
	"github.com/erazemk/katalog/internal/preview"
)

// DefaultCloseDelay keeps the success message visible before the modal
// closes.
const DefaultCloseDelay = time.Second

// ItemWriter persists items.
type ItemWriter interface {
	Create(ctx context.Context, in client.Payload, file *client.File) (*model.Item, error)
	Update(ctx context.Context, id string, in client.Payload, file *client.File) (*model.Item, error)
}

// CategoryLister lists category options.
type CategoryLister interface {
	List(ctx context.Context) ([]model.Category, error)
}

// StoreLister lists store options.
type StoreLister interface {
	List(ctx context.Context) ([]model.Store, error)
}

// Completion announces the outcome of a submit that reached the backend.
type Completion struct {
	Mode Mode
	Item *model.Item
	Err  error
}

// OK reports whether the mutation landed.
func (c Completion) OK() bool { return c.Err == nil }

// Options configures a Controller.
type Options struct {
	Items        ItemWriter
	Categories   CategoryLister
	Stores       StoreLister
	Modal        *modal.Coordinator
	Previews     *preview.Registry
	ImageBaseURL string
	CloseDelay   time.Duration
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
}

// State is a snapshot for rendering.
type State struct {
	Mode       Mode
	Draft      Draft
	Categories []model.Category
	Stores     []model.Store
	Loading    bool
	Error      string
	Success    string
	PhotoError string
	PhotoName  string
	PreviewURL string
}

type subscriber struct {
	fn func(Completion)
}

// Controller owns the form draft. It is safe for concurrent use.
type Controller struct {
	items      ItemWriter
	categories CategoryLister
	stores     StoreLister
	modal      *modal.Coordinator
	previews   *preview.Registry
	imageBase  string
	closeDelay time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	mode        Mode
	draft       Draft
	photo       *Photo
	handle      preview.Handle
	catOptions  []model.Category
	storeOpts   []model.Store
	loading     bool
	errMsg      string
	success     string
	photoErr    string
	gen         uint64
	closeTimer  *time.Timer
	modalOpen   bool
	closed      bool
	subs        []*subscriber
	unsubscribe func()
}

// New creates a controller in create mode and starts following the modal.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	closeDelay := opts.CloseDelay
	if closeDelay <= 0 {
		closeDelay = DefaultCloseDelay
	}
	previews := opts.Previews
	if previews == nil {
		previews = preview.NewRegistry("")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		items:      opts.Items,
		categories: opts.Categories,
		stores:     opts.Stores,
		modal:      opts.Modal,
		previews:   previews,
		imageBase:  opts.ImageBaseURL,
		closeDelay: closeDelay,
		logger:     logger.With("component", "itemform"),
		metrics:    opts.Metrics,
		ctx:        ctx,
		cancel:     cancel,
		mode:       ModeCreate,
	}
	c.unsubscribe = c.modal.Subscribe(c.onModal)
	return c
}

// onModal discards the draft on every open to closed transition.
func (c *Controller) onModal(open bool) {
	c.mu.Lock()
	wasOpen := c.modalOpen
	c.modalOpen = open
	c.mu.Unlock()

	if wasOpen && !open {
		c.reset()
	}
}

// Init loads the category and store options concurrently. Failures are
// logged and leave the options empty.
func (c *Controller) Init(ctx context.Context) {
	var (
		wg     sync.WaitGroup
		cats   []model.Category
		stores []model.Store
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if cats, err = c.categories.List(ctx); err != nil {
			c.logger.Error("loading categories", "error", err)
			cats = nil
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if stores, err = c.stores.List(ctx); err != nil {
			c.logger.Error("loading stores", "error", err)
			stores = nil
		}
	}()
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.catOptions = cats
	c.storeOpts = stores
}

// Hydrate primes the form. A nil item resets to an empty create form;
// otherwise the item's fields are copied and the form enters edit mode.
func (c *Controller) Hydrate(item *model.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.discardLocked()
	if item == nil {
		return
	}

	d := Draft{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Quantity:    item.Quantity,
		StockType:   item.StockType,
		CategoryID:  item.Category.ID(),
		StoreID:     item.Store.ID(),
	}
	if v, ok := item.Price.Float(); ok {
		d.Price = &v
	}
	if item.ImageURL != "" {
		d.ImageURL = client.ImageURL(c.imageBase, item.ImageURL)
	}
	c.draft = d
	c.mode = ModeEdit
}

// Edit applies operator changes to the draft. The identifier and mode
// are not editable.
func (c *Controller) Edit(fn func(d *Draft)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, image := c.draft.ID, c.draft.ImageURL
	fn(&c.draft)
	c.draft.ID, c.draft.ImageURL = id, image
}

// SelectPhoto attaches a photo. A rejected photo records a photo error
// and keeps the previous photo. Picker and drag-and-drop both land here.
func (c *Controller) SelectPhoto(p Photo) error {
	p.ContentType = imaging.DetectType(p.ContentType, p.Data)
	if err := imaging.CheckPhoto(p.ContentType, p.size()); err != nil {
		c.mu.Lock()
		c.photoErr = err.Error()
		c.mu.Unlock()
		return err
	}

	data, contentType := p.Data, p.ContentType
	if res, err := imaging.Preview(p.Data); err == nil {
		data, contentType = res.Data, res.MIME
	} else {
		c.logger.Debug("preview rendering failed, using original bytes", "file", p.Name, "error", err)
	}
	handle := c.previews.Create(data, contentType)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.previews.Revoke(handle.ID)
		return ErrClosed
	}
	c.previews.Revoke(c.handle.ID)
	c.photo = &p
	c.handle = handle
	c.photoErr = ""
	return nil
}

// ClearPhoto drops the pending photo and any photo error.
func (c *Controller) ClearPhoto() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releasePhotoLocked()
	c.photoErr = ""
}

// Validate reports the first rule the current draft violates.
func (c *Controller) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Validate()
}

// Submit validates the draft and sends it. A validation failure is
// stored as the form error and nothing is sent. On success the modal
// closes after the close delay; on failure the draft is kept for retry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if err := c.draft.Validate(); err != nil {
		c.errMsg = err.Error()
		c.success = ""
		c.mu.Unlock()
		return err
	}
	if c.loading {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}

	c.loading = true
	c.errMsg = ""
	c.success = ""
	mode, id, gen := c.mode, c.draft.ID, c.gen
	input := c.draft.Input()
	var file *client.File
	if c.photo != nil {
		file = &client.File{Name: c.photo.Name, ContentType: c.photo.ContentType, Data: c.photo.Data}
	}
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	var (
		item *model.Item
		err  error
	)
	if mode == ModeEdit {
		item, err = c.items.Update(ctx, id, input, file)
	} else {
		item, err = c.items.Create(ctx, input, file)
	}
	c.metrics.ObserveSubmit(string(mode), err == nil)

	c.mu.Lock()
	c.loading = false
	current := gen == c.gen && !c.closed
	if err != nil {
		c.logger.Error("submitting item", "mode", mode, "id", id, "error", err)
		if current {
			c.errMsg = client.Message(err)
		}
	} else {
		if item != nil && item.ID != "" {
			id = item.ID
		}
		c.logger.Info("item saved", "mode", mode, "id", id)
		if current {
			c.success = MsgCreated
			if mode == ModeEdit {
				c.success = MsgUpdated
			}
			c.stopCloseTimerLocked()
			c.closeTimer = time.AfterFunc(c.closeDelay, func() { c.finish(gen) })
		}
	}
	subs := slices.Clone(c.subs)
	c.mu.Unlock()

	done := Completion{Mode: mode, Item: item, Err: err}
	for _, s := range subs {
		s.fn(done)
	}
	return err
}

// finish closes the form after a successful submit, unless the draft was
// replaced in the meantime.
func (c *Controller) finish(gen uint64) {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.closeTimer = nil
	open := c.modalOpen
	c.mu.Unlock()

	if open {
		c.modal.Close()
		return
	}
	c.reset()
}

// Cancel closes the form without saving.
func (c *Controller) Cancel() {
	c.mu.Lock()
	open := c.modalOpen
	c.mu.Unlock()

	if open {
		c.modal.Close()
		return
	}
	c.reset()
}

// Subscribe registers fn for every submit completion until the returned
// function is called.
func (c *Controller) Subscribe(fn func(Completion)) (unsubscribe func()) {
	s := &subscriber{fn: fn}

	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(x *subscriber) bool { return x == s })
	}
}

// State returns a snapshot of the form.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Mode:       c.mode,
		Draft:      c.draft,
		Categories: slices.Clone(c.catOptions),
		Stores:     slices.Clone(c.storeOpts),
		Loading:    c.loading,
		Error:      c.errMsg,
		Success:    c.success,
		PhotoError: c.photoErr,
		PreviewURL: c.draft.ImageURL,
	}
	if c.draft.Price != nil {
		v := *c.draft.Price
		st.Draft.Price = &v
	}
	if c.photo != nil {
		st.PhotoName = c.photo.Name
		st.PreviewURL = c.handle.URL
	}
	return st
}

// Close tears the controller down: pending timers and requests are
// cancelled, the modal subscription is dropped and the preview released.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopCloseTimerLocked()
	c.releasePhotoLocked()
	c.subs = nil
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	c.cancel()
	unsubscribe()
}

func (c *Controller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discardLocked()
}

// discardLocked empties the draft and invalidates any pending close.
func (c *Controller) discardLocked() {
	c.stopCloseTimerLocked()
	c.releasePhotoLocked()
	c.draft = Draft{}
	c.mode = ModeCreate
	c.errMsg = ""
	c.success = ""
	c.photoErr = ""
	c.gen++
}

func (c *Controller) releasePhotoLocked() {
	c.previews.Revoke(c.handle.ID)
	c.handle = preview.Handle{}
	c.photo = nil
}

func (c *Controller) stopCloseTimerLocked() {
	if c.closeTimer != nil {
		c.closeTimer.Stop()
		c.closeTimer = nil
	}
}
