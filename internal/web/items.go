package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/erazemk/katalog/internal/auth"
	"github.com/erazemk/katalog/internal/confirm"
	"github.com/erazemk/katalog/internal/flash"
	"github.com/erazemk/katalog/internal/imaging"
	"github.com/erazemk/katalog/internal/itemform"
	"github.com/erazemk/katalog/internal/model"
)

// refreshSeconds is how often the items page reloads while work is pending.
const refreshSeconds = 1

type itemRow struct {
	ID          string
	Name        string
	Description string
	Price       string
	Quantity    int
	StockType   model.StockType
	Category    string
	Store       string
	ImageURL    string
}

type formView struct {
	itemform.State
	Heading   string
	PriceText string
}

type itemsPage struct {
	PageData
	Rows      []itemRow
	Loading   bool
	ListError string
	Flash     flash.Message
	ModalOpen bool
	Form      formView
	Dialog    confirm.State
}

// ItemsPage handles GET /items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	list := s.App.List.State()
	form := s.App.Form.State()
	dialog := s.App.Dialog.State()
	modalOpen := s.App.Modal.IsOpen()

	categories := make(map[string]string, len(form.Categories))
	for _, c := range form.Categories {
		categories[c.ID] = c.Name
	}
	stores := make(map[string]string, len(form.Stores))
	for _, st := range form.Stores {
		stores[st.ID] = st.Name
	}

	rows := make([]itemRow, 0, len(list.Items))
	for _, it := range list.Items {
		rows = append(rows, itemRow{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Price:       priceText(it.Price),
			Quantity:    it.Quantity,
			StockType:   it.StockType,
			Category:    it.Category.LabelIn(categories),
			Store:       it.Store.LabelIn(stores),
			ImageURL:    s.App.ImageURL(it.ImageURL),
		})
	}

	view := formView{State: form, Heading: "Add item"}
	if form.Mode == itemform.ModeEdit {
		view.Heading = "Edit item"
	}
	if form.Draft.Price != nil {
		view.PriceText = strconv.FormatFloat(*form.Draft.Price, 'f', -1, 64)
	}

	page := &itemsPage{
		PageData:  s.pageData(r, "Items"),
		Rows:      rows,
		Loading:   list.Loading,
		ListError: list.Error,
		Flash:     list.Flash,
		ModalOpen: modalOpen,
		Form:      view,
		Dialog:    dialog,
	}
	if list.Loading || dialog.Busy || form.Loading || form.Success != "" || !list.Flash.IsZero() {
		page.Refresh = refreshSeconds
	}
	s.Templates.Render(w, "items.html", page)
}

// ItemsReload handles POST /items/reload.
func (s *Server) ItemsReload(w http.ResponseWriter, r *http.Request) {
	_ = s.App.List.Load(r.Context())
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// ItemNew handles POST /items/new.
func (s *Server) ItemNew(w http.ResponseWriter, r *http.Request) {
	s.App.List.RequestCreate()
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// ItemEdit handles POST /items/{id}/edit.
func (s *Server) ItemEdit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var item *model.Item
	for _, it := range s.App.List.State().Items {
		if it.ID == id {
			item = &it
			break
		}
	}
	if item == nil {
		fetched, err := s.App.Items.Get(r.Context(), id)
		if err != nil {
			s.Logger.Error("failed to fetch item for editing", "id", id, "error", err)
			s.App.Flash.Error(auth.Message(err))
			http.Redirect(w, r, "/items", http.StatusSeeOther)
			return
		}
		item = fetched
	}

	s.App.List.RequestEdit(*item)
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// ItemDelete handles POST /items/{id}/delete.
func (s *Server) ItemDelete(w http.ResponseWriter, r *http.Request) {
	s.App.List.RequestDelete(r.PathValue("id"))
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// ConfirmSubmit handles POST /confirm.
func (s *Server) ConfirmSubmit(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("answer") == "yes" {
		s.App.Dialog.Confirm()
	} else {
		s.App.Dialog.Cancel()
	}
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// FormSubmit handles POST /form. The fields always update the draft; a
// photo is attached when one was chosen; the draft is submitted unless
// the operator only asked to attach the photo.
func (s *Server) FormSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.App.Modal.IsOpen() {
		http.Redirect(w, r, "/items", http.StatusSeeOther)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = s.App.Form.SelectPhoto(itemform.Photo{ContentType: "image/*", Size: imaging.MaxPhotoSize + 1})
			http.Redirect(w, r, "/items", http.StatusSeeOther)
			return
		}
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	stock, _ := model.ParseStockType(r.FormValue("type_stock"))
	quantity, _ := strconv.Atoi(r.FormValue("quantity"))
	s.App.Form.Edit(func(d *itemform.Draft) {
		d.Name = r.FormValue("name")
		d.Description = r.FormValue("description")
		d.SetPrice(r.FormValue("price"))
		d.Quantity = max(quantity, 0)
		d.StockType = stock
		d.CategoryID = r.FormValue("category")
		d.StoreID = r.FormValue("store")
	})

	if f, h, err := r.FormFile("photo"); err == nil {
		data, err := io.ReadAll(io.LimitReader(f, imaging.MaxPhotoSize+1))
		f.Close()
		if err == nil && h.Size > 0 {
			_ = s.App.Form.SelectPhoto(itemform.Photo{
				Name:        h.Filename,
				ContentType: h.Header.Get("Content-Type"),
				Size:        h.Size,
				Data:        data,
			})
		}
	}

	if r.FormValue("action") != "photo" {
		if err := s.App.Form.Submit(r.Context()); err != nil {
			s.Logger.Debug("item form not submitted", "error", err)
		}
	}
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// FormClearPhoto handles POST /form/photo/clear.
func (s *Server) FormClearPhoto(w http.ResponseWriter, r *http.Request) {
	s.App.Form.ClearPhoto()
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// FormCancel handles POST /form/cancel.
func (s *Server) FormCancel(w http.ResponseWriter, r *http.Request) {
	s.App.Form.Cancel()
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// PreviewGet handles GET /previews/{id}.
func (s *Server) PreviewGet(w http.ResponseWriter, r *http.Request) {
	data, mime, ok := s.App.Previews.Open(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := w.Write(data); err != nil {
		s.Logger.Error("failed to write preview response", "error", err)
	}
}

func (s *Server) pageData(r *http.Request, title string) PageData {
	id, _ := r.Context().Value(webIdentityKey).(*auth.Identity)
	return PageData{Title: title, SignedIn: true, Identity: id}
}

func priceText(p model.Price) string {
	v, ok := p.Float()
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
