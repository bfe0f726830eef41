package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/erazemk/katalog/internal/model"
)

// DefaultFileField is the multipart field an attached file is sent under.
const DefaultFileField = "photo"

// Payload is an outbound record reduced to form fields.
type Payload interface {
	Fields() url.Values
}

// File is a binary attachment sent alongside a payload.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Resource gives CRUD access to one backend collection. When envelope is
// set, list responses carry the records under that key.
type Resource[T any] struct {
	client   *Client
	path     string
	envelope string
}

// NewResource binds a collection path on c.
func NewResource[T any](c *Client, path, envelope string) *Resource[T] {
	return &Resource[T]{client: c, path: strings.Trim(path, "/"), envelope: envelope}
}

// Items is the item collection. List responses are bare arrays.
func Items(c *Client) *Resource[model.Item] {
	return NewResource[model.Item](c, "items", "")
}

// Categories is the category collection, wrapped in {"categories": [...]}.
func Categories(c *Client) *Resource[model.Category] {
	return NewResource[model.Category](c, "categories", "categories")
}

// Stores is the store collection, wrapped in {"stores": [...]}.
func Stores(c *Client) *Resource[model.Store] {
	return NewResource[model.Store](c, "stores", "stores")
}

// List returns every record of the collection.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	body, err := r.client.Fetch(ctx, http.MethodGet, r.path)
	if err != nil {
		return nil, err
	}

	raw := gjson.ParseBytes(body)
	if r.envelope != "" {
		raw = raw.Get(r.envelope)
	}
	if !raw.Exists() || raw.Type == gjson.Null {
		return []T{}, nil
	}
	if !raw.IsArray() {
		return nil, fmt.Errorf("listing %s: expected an array", r.path)
	}

	out := []T{}
	if err := json.Unmarshal([]byte(raw.Raw), &out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.path, err)
	}
	return out, nil
}

// Get returns a single record.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	body, err := r.client.Fetch(ctx, http.MethodGet, r.recordPath(id))
	if err != nil {
		return nil, err
	}
	return decodeRecord[T](r.path, body)
}

// Create posts a new record, with an optional file attachment.
func (r *Resource[T]) Create(ctx context.Context, in Payload, file *File) (*T, error) {
	body, err := r.client.Send(ctx, http.MethodPost, r.path, in.Fields(), file)
	if err != nil {
		return nil, err
	}
	return decodeRecord[T](r.path, body)
}

// Update replaces the record's fields, with an optional file attachment.
func (r *Resource[T]) Update(ctx context.Context, id string, in Payload, file *File) (*T, error) {
	body, err := r.client.Send(ctx, http.MethodPut, r.recordPath(id), in.Fields(), file)
	if err != nil {
		return nil, err
	}
	return decodeRecord[T](r.path, body)
}

// Delete removes a record.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.client.Fetch(ctx, http.MethodDelete, r.recordPath(id))
	return err
}

func (r *Resource[T]) recordPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func decodeRecord[T any](path string, body []byte) (*T, error) {
	out := new(T)
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeForm picks the wire encoding for a field set.
func encodeForm(fields url.Values, file *File) (io.Reader, string, error) {
	if file == nil {
		return strings.NewReader(fields.Encode()), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		for _, v := range fields[k] {
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("writing field %s: %w", k, err)
			}
		}
	}

	field := file.Field
	if field == "" {
		field = DefaultFileField
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("writing file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
