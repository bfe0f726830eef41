package itemform

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/katalog/internal/client"
	"github.com/erazemk/katalog/internal/modal"
	"github.com/erazemk/katalog/internal/model"
	"github.com/erazemk/katalog/internal/preview"
)

const testCloseDelay = 20 * time.Millisecond

type fakeItems struct {
	mu      sync.Mutex
	creates int
	updates int
	id      string
	input   model.ItemInput
	file    *client.File
	err     error
	block   chan struct{}
}

func (f *fakeItems) record(id string, in client.Payload, file *client.File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.id = id
	f.input = in.(model.ItemInput)
	f.file = file
}

func (f *fakeItems) wait(ctx context.Context) error {
	if f.block == nil {
		return nil
	}
	select {
	case <-f.block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeItems) Create(ctx context.Context, in client.Payload, file *client.File) (*model.Item, error) {
	f.mu.Lock()
	f.creates++
	f.mu.Unlock()
	f.record("", in, file)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Item{ID: "new-1", Name: in.(model.ItemInput).Name}, nil
}

func (f *fakeItems) Update(ctx context.Context, id string, in client.Payload, file *client.File) (*model.Item, error) {
	f.mu.Lock()
	f.updates++
	f.mu.Unlock()
	f.record(id, in, file)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Item{ID: id}, nil
}

func (f *fakeItems) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates + f.updates
}

type listerFunc[T any] func(ctx context.Context) ([]T, error)

func (fn listerFunc[T]) List(ctx context.Context) ([]T, error) { return fn(ctx) }

func staticList[T any](items ...T) listerFunc[T] {
	return func(context.Context) ([]T, error) { return items, nil }
}

type fixture struct {
	form     *Controller
	items    *fakeItems
	modal    *modal.Coordinator
	previews *preview.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		items:    &fakeItems{},
		modal:    modal.New(),
		previews: preview.NewRegistry("/previews/"),
	}
	f.form = New(Options{
		Items:        f.items,
		Categories:   staticList(model.Category{ID: "c1", Name: "Home"}),
		Stores:       staticList(model.Store{ID: "s1", Name: "Main"}),
		Modal:        f.modal,
		Previews:     f.previews,
		ImageBaseURL: "http://localhost:3000/api",
		CloseDelay:   testCloseDelay,
	})
	t.Cleanup(f.form.Close)
	return f
}

func validDraft(d *Draft) {
	d.Name = "Lamp"
	d.Description = "Bright"
	d.CategoryID = "c1"
	d.StoreID = "s1"
	d.SetPrice("19.5")
	d.Quantity = 2
}

func pngPhoto(t *testing.T, name string) Photo {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return Photo{Name: name, ContentType: "image/png", Data: buf.Bytes()}
}

func TestValidateReportsFirstViolation(t *testing.T) {
	zero, negative, ok := 0.0, -3.0, 4.0
	tests := []struct {
		name  string
		draft Draft
		want  string
	}{
		{"everything missing", Draft{}, MsgNameRequired},
		{"blank name and missing category", Draft{Name: "  ", Description: "d"}, MsgNameRequired},
		{"blank description", Draft{Name: "n", Description: "\t"}, MsgDescriptionRequired},
		{"missing category before price", Draft{Name: "n", Description: "d"}, MsgCategoryRequired},
		{"missing price", Draft{Name: "n", Description: "d", CategoryID: "c"}, MsgPriceRequired},
		{"zero price", Draft{Name: "n", Description: "d", CategoryID: "c", Price: &zero}, MsgPricePositive},
		{"negative price", Draft{Name: "n", Description: "d", CategoryID: "c", Price: &negative}, MsgPricePositive},
		{"valid", Draft{Name: "n", Description: "d", CategoryID: "c", Price: &ok}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Message)
		})
	}
}

func TestInitLoadsOptions(t *testing.T) {
	f := newFixture(t)
	f.form.Init(context.Background())

	st := f.form.State()
	assert.Equal(t, []model.Category{{ID: "c1", Name: "Home"}}, st.Categories)
	assert.Equal(t, []model.Store{{ID: "s1", Name: "Main"}}, st.Stores)
}

func TestInitDegradesToEmptyOptions(t *testing.T) {
	form := New(Options{
		Items: &fakeItems{},
		Categories: listerFunc[model.Category](func(context.Context) ([]model.Category, error) {
			return nil, &client.Error{Status: 0, Message: client.MsgUnreachable}
		}),
		Stores: staticList(model.Store{ID: "s1"}),
		Modal:  modal.New(),
	})
	defer form.Close()

	form.Init(context.Background())
	st := form.State()
	assert.Empty(t, st.Categories)
	assert.Len(t, st.Stores, 1)
}

func TestHydrateNormalizesPrice(t *testing.T) {
	f := newFixture(t)

	f.form.Hydrate(&model.Item{
		ID: "i1", Name: "Lamp", Description: "d", Price: "19.99", Quantity: 3,
		StockType: model.StockLIFO, Category: model.Resolved("c1", "Home"),
		Store: model.RefID("s1"), ImageURL: "/uploads/lamp.png",
	})

	st := f.form.State()
	assert.Equal(t, ModeEdit, st.Mode)
	require.NotNil(t, st.Draft.Price)
	assert.Equal(t, 19.99, *st.Draft.Price)
	assert.Equal(t, "c1", st.Draft.CategoryID)
	assert.Equal(t, "s1", st.Draft.StoreID)
	assert.Equal(t, model.StockLIFO, st.Draft.StockType)
	assert.Equal(t, "http://localhost:3000/uploads/lamp.png", st.PreviewURL)
	assert.Zero(t, f.previews.Len(), "stored images are not revocable handles")
}

func TestHydrateNonNumericPriceIsAbsent(t *testing.T) {
	f := newFixture(t)
	f.form.Hydrate(&model.Item{ID: "i1", Name: "Lamp", Description: "d", Price: "abc", Category: model.RefID("c1")})

	assert.Nil(t, f.form.State().Draft.Price)

	err := f.form.Submit(context.Background())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgPriceRequired, verr.Message)
	assert.Equal(t, MsgPriceRequired, f.form.State().Error)
	assert.Zero(t, f.items.calls())
}

func TestHydrateNilResetsToCreate(t *testing.T) {
	f := newFixture(t)
	f.form.Hydrate(&model.Item{ID: "i1", Name: "Lamp"})
	require.NoError(t, f.form.SelectPhoto(pngPhoto(t, "a.png")))

	f.form.Hydrate(nil)

	st := f.form.State()
	assert.Equal(t, ModeCreate, st.Mode)
	assert.Equal(t, Draft{}, st.Draft)
	assert.Empty(t, st.PreviewURL)
	assert.Zero(t, f.previews.Len())
}

func TestEditCannotChangeIdentifier(t *testing.T) {
	f := newFixture(t)
	f.form.Hydrate(&model.Item{ID: "i1"})
	f.form.Edit(func(d *Draft) {
		d.ID = "other"
		d.Name = "Renamed"
	})

	st := f.form.State()
	assert.Equal(t, "i1", st.Draft.ID)
	assert.Equal(t, "Renamed", st.Draft.Name)
}

func TestSelectPhotoRejectionsKeepPreviousPhoto(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.form.SelectPhoto(pngPhoto(t, "first.png")))
	before := f.form.State()
	require.True(t, strings.HasPrefix(before.PreviewURL, "/previews/"))

	err := f.form.SelectPhoto(Photo{Name: "huge.png", ContentType: "image/png", Size: 6 << 20})
	assert.ErrorIs(t, err, ErrPhotoTooLarge)
	st := f.form.State()
	assert.Equal(t, ErrPhotoTooLarge.Error(), st.PhotoError)
	assert.Equal(t, "first.png", st.PhotoName)
	assert.Equal(t, before.PreviewURL, st.PreviewURL)

	err = f.form.SelectPhoto(Photo{Name: "doc.pdf", ContentType: "application/pdf", Data: make([]byte, 1<<20)})
	assert.ErrorIs(t, err, ErrPhotoType)
	st = f.form.State()
	assert.Equal(t, ErrPhotoType.Error(), st.PhotoError)
	assert.Equal(t, "first.png", st.PhotoName)
	assert.Equal(t, 1, f.previews.Len())
}

func TestSelectPhotoRejectionLeavesFormUntouched(t *testing.T) {
	f := newFixture(t)
	f.form.Edit(validDraft)
	_ = f.form.SelectPhoto(Photo{Name: "x.txt", Data: []byte("plain text")})

	st := f.form.State()
	assert.Equal(t, "Lamp", st.Draft.Name)
	assert.Empty(t, st.Error)
	assert.Equal(t, ErrPhotoType.Error(), st.PhotoError)
}

func TestSelectPhotoReplacesAndReleasesHandle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.form.SelectPhoto(pngPhoto(t, "a.png")))
	first := f.form.State().PreviewURL

	require.NoError(t, f.form.SelectPhoto(pngPhoto(t, "b.png")))
	st := f.form.State()
	assert.NotEqual(t, first, st.PreviewURL)
	assert.Equal(t, "b.png", st.PhotoName)
	assert.Equal(t, 1, f.previews.Len())

	f.form.ClearPhoto()
	st = f.form.State()
	assert.Empty(t, st.PhotoName)
	assert.Empty(t, st.PreviewURL)
	assert.Zero(t, f.previews.Len())
}

func TestUndecodableImageFallsBackToOriginalBytes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.form.SelectPhoto(Photo{Name: "a.webp", ContentType: "image/webp", Data: []byte("RIFF")}))

	id := strings.TrimPrefix(f.form.State().PreviewURL, "/previews/")
	data, ct, ok := f.previews.Open(id)
	require.True(t, ok)
	assert.Equal(t, "image/webp", ct)
	assert.Equal(t, "RIFF", string(data))
}

func TestOversizedImageFallsBackToOriginalBytes(t *testing.T) {
	var ihdr bytes.Buffer
	ihdr.WriteString("IHDR")
	binary.Write(&ihdr, binary.BigEndian, uint32(20000))
	binary.Write(&ihdr, binary.BigEndian, uint32(20000))
	ihdr.Write([]byte{8, 0, 0, 0, 0})
	var header bytes.Buffer
	header.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&header, binary.BigEndian, uint32(13))
	header.Write(ihdr.Bytes())
	binary.Write(&header, binary.BigEndian, crc32.ChecksumIEEE(ihdr.Bytes()))

	f := newFixture(t)
	require.NoError(t, f.form.SelectPhoto(Photo{Name: "huge.png", ContentType: "image/png", Data: header.Bytes()}))

	id := strings.TrimPrefix(f.form.State().PreviewURL, "/previews/")
	data, ct, ok := f.previews.Open(id)
	require.True(t, ok)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, header.Bytes(), data)
}

func TestCreateSubmitClosesModalAndResetsDraft(t *testing.T) {
	f := newFixture(t)
	var completions []Completion
	var mu sync.Mutex
	f.form.Subscribe(func(c Completion) {
		mu.Lock()
		completions = append(completions, c)
		mu.Unlock()
	})

	f.form.Hydrate(&model.Item{ID: "stale"})
	f.form.Hydrate(nil)
	f.modal.Open()
	f.form.Edit(validDraft)
	require.NoError(t, f.form.SelectPhoto(pngPhoto(t, "lamp.png")))

	require.NoError(t, f.form.Submit(context.Background()))

	st := f.form.State()
	assert.Equal(t, MsgCreated, st.Success)
	assert.True(t, f.modal.IsOpen(), "modal stays open while the success message shows")

	f.items.mu.Lock()
	assert.Equal(t, 1, f.items.creates)
	assert.Equal(t, model.ItemInput{Name: "Lamp", Description: "Bright", Price: 19.5, Quantity: 2, CategoryID: "c1", StoreID: "s1"}, f.items.input)
	require.NotNil(t, f.items.file)
	assert.Equal(t, "lamp.png", f.items.file.Name)
	assert.Equal(t, "image/png", f.items.file.ContentType)
	f.items.mu.Unlock()

	mu.Lock()
	require.Len(t, completions, 1)
	assert.True(t, completions[0].OK())
	assert.Equal(t, ModeCreate, completions[0].Mode)
	mu.Unlock()

	require.Eventually(t, func() bool { return !f.modal.IsOpen() }, time.Second, 5*time.Millisecond)
	st = f.form.State()
	assert.Equal(t, Draft{}, st.Draft)
	assert.Empty(t, st.Success)
	assert.Zero(t, f.previews.Len())

	f.form.Hydrate(nil)
	assert.Empty(t, f.form.State().Draft.ID)
}

func TestEditSubmitUpdates(t *testing.T) {
	f := newFixture(t)
	f.form.Hydrate(&model.Item{ID: "i1", Name: "Lamp", Description: "d", Price: "10", Category: model.RefID("c1"), Store: model.RefID("s1")})
	f.modal.Open()

	require.NoError(t, f.form.Submit(context.Background()))
	assert.Equal(t, MsgUpdated, f.form.State().Success)

	f.items.mu.Lock()
	assert.Equal(t, 1, f.items.updates)
	assert.Equal(t, "i1", f.items.id)
	assert.Nil(t, f.items.file)
	f.items.mu.Unlock()

	require.Eventually(t, func() bool { return !f.modal.IsOpen() }, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.form.State().Draft.ID)
}

func TestEditZeroPriceBlocksSubmit(t *testing.T) {
	f := newFixture(t)
	item := model.Item{ID: "i1", Name: "Lamp", Description: "d", Price: "10", Category: model.RefID("c1"), Store: model.RefID("s1")}

	f.form.Hydrate(&item)
	f.modal.Open()
	assert.Equal(t, "Lamp", f.form.State().Draft.Name)

	f.form.Edit(func(d *Draft) { d.SetPrice("0") })
	err := f.form.Submit(context.Background())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgPricePositive, verr.Message)
	assert.Zero(t, f.items.calls())
	assert.True(t, f.modal.IsOpen())
	assert.Equal(t, MsgPricePositive, f.form.State().Error)
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	f.items.err = &client.Error{Status: 500, Message: "Store not found"}
	var got Completion
	f.form.Subscribe(func(c Completion) { got = c })

	f.modal.Open()
	f.form.Edit(validDraft)
	err := f.form.Submit(context.Background())
	require.Error(t, err)

	st := f.form.State()
	assert.Equal(t, "Store not found", st.Error)
	assert.Empty(t, st.Success)
	assert.False(t, st.Loading)
	assert.Equal(t, "Lamp", st.Draft.Name)
	assert.False(t, got.OK())

	time.Sleep(3 * testCloseDelay)
	assert.True(t, f.modal.IsOpen())
}

func TestSubmitWhileInFlight(t *testing.T) {
	f := newFixture(t)
	f.items.block = make(chan struct{})
	f.form.Edit(validDraft)

	done := make(chan error, 1)
	go func() { done <- f.form.Submit(context.Background()) }()
	require.Eventually(t, func() bool { return f.form.State().Loading }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, f.form.Submit(context.Background()), ErrSubmitInFlight)
	assert.Equal(t, 1, f.items.calls())

	close(f.items.block)
	require.NoError(t, <-done)
	assert.False(t, f.form.State().Loading)
}

func TestCancelClosesAndResets(t *testing.T) {
	f := newFixture(t)
	f.form.Hydrate(&model.Item{ID: "i1", Name: "Lamp"})
	f.modal.Open()
	require.NoError(t, f.form.SelectPhoto(pngPhoto(t, "a.png")))

	f.form.Cancel()

	assert.False(t, f.modal.IsOpen())
	assert.Equal(t, Draft{}, f.form.State().Draft)
	assert.Zero(t, f.previews.Len())
}

func TestRepeatedCyclesDoNotLeakHandles(t *testing.T) {
	f := newFixture(t)
	for range 5 {
		f.form.Hydrate(nil)
		f.modal.Open()
		require.NoError(t, f.form.SelectPhoto(pngPhoto(t, "a.png")))
		require.NoError(t, f.form.SelectPhoto(pngPhoto(t, "b.png")))
		f.modal.Close()
	}
	assert.Zero(t, f.previews.Len())
}

func TestCloseCancelsInFlightSubmit(t *testing.T) {
	f := newFixture(t)
	f.items.block = make(chan struct{})
	f.form.Edit(validDraft)
	require.NoError(t, f.form.SelectPhoto(pngPhoto(t, "a.png")))

	done := make(chan error, 1)
	go func() { done <- f.form.Submit(context.Background()) }()
	require.Eventually(t, func() bool { return f.form.State().Loading }, time.Second, 5*time.Millisecond)

	f.form.Close()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("submit was not cancelled")
	}
	assert.Zero(t, f.previews.Len())
	assert.ErrorIs(t, f.form.Submit(context.Background()), ErrClosed)

	f.modal.Open()
	f.modal.Close()
}
