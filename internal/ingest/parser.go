package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"topten/internal/models"
)

const (
	fieldTitle    = "title"
	fieldCategory = "category"
)

var (
	itemFields  = []string{"items[]", "items"}
	imageFields = []string{"images[]", "images"}
)

type itemDescriptor struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Position    flexInt         `json:"position"`
	ImageURL    *string         `json:"imageUrl"`
	ExternalURL *string         `json:"externalUrl"`
	HasImage    bool            `json:"hasImage"`
	ImageFile   json.RawMessage `json:"imageFile"`
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (p *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*p = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
		if raw == "" {
			*p = 0
			return nil
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("position must be an integer, got %s", data)
	}
	*p = flexInt(n)
	return nil
}

func (d itemDescriptor) carriesUpload() bool {
	if d.HasImage {
		return true
	}
	raw := bytes.TrimSpace(d.ImageFile)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null")) && !bytes.Equal(raw, []byte("false"))
}

func (d itemDescriptor) clientID() string {
	raw := bytes.TrimSpace(d.ID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ParseSubmission decodes a parsed multipart form into a Submission. It has
// no side effects; any structural problem yields ErrMalformedSubmission.
//
// A blank or whitespace-only imageUrl or externalUrl is treated as absent and
// comes back as nil, so it is stored as NULL rather than an empty string.
func ParseSubmission(form *multipart.Form) (Submission, error) {
	var sub Submission
	if form == nil {
		return sub, malformed("form is required")
	}

	sub.Title = strings.TrimSpace(firstValue(form.Value, fieldTitle))
	if sub.Title == "" {
		return sub, malformed("title is required")
	}
	sub.Category = models.NormalizeCategory(firstValue(form.Value, fieldCategory))

	rawItems := firstPresent(form.Value, itemFields)
	if len(rawItems) > models.MaxListItems {
		return sub, malformed("at most %d items are allowed, got %d", models.MaxListItems, len(rawItems))
	}

	descriptors := make([]itemDescriptor, len(rawItems))
	for i, raw := range rawItems {
		trimmed := strings.TrimSpace(raw)
		if !strings.HasPrefix(trimmed, "{") {
			return sub, malformed("item %d: expected a JSON object", i)
		}
		if err := json.Unmarshal([]byte(trimmed), &descriptors[i]); err != nil {
			return sub, malformed("item %d: %v", i, err)
		}
	}

	sub.Items = make([]ItemPayload, len(descriptors))
	seen := make(map[int]int, len(descriptors))
	for i, d := range descriptors {
		position := int(d.Position)
		if position == 0 {
			position = i + 1
		}
		if !models.IsValidPosition(position) {
			return sub, malformed("item %d: position %d out of range [%d,%d]", i, position, models.PositionMin, models.PositionMax)
		}
		if prev, ok := seen[position]; ok {
			return sub, malformed("item %d: position %d already used by item %d", i, position, prev)
		}
		seen[position] = i

		sub.Items[i] = ItemPayload{
			ClientID:    d.clientID(),
			Title:       d.Title,
			Description: d.Description,
			Position:    position,
			ImageURL:    optionalURL(d.ImageURL),
			ExternalURL: optionalURL(d.ExternalURL),
		}
	}

	if err := attachUploads(sub.Items, descriptors, firstPresentFiles(form.File, imageFields)); err != nil {
		return sub, err
	}
	return sub, nil
}

// attachUploads pairs files with the descriptors flagged as carrying one, in
// order. With no flags, files map 1:1 when the counts match.
func attachUploads(items []ItemPayload, descriptors []itemDescriptor, files []*multipart.FileHeader) error {
	flagged := make([]int, 0, len(descriptors))
	for i, d := range descriptors {
		if d.carriesUpload() {
			flagged = append(flagged, i)
		}
	}

	switch {
	case len(flagged) > 0:
		if len(files) != len(flagged) {
			return malformed("%d items declare an image but %d files were sent", len(flagged), len(files))
		}
		for k, idx := range flagged {
			items[idx].Upload = UploadFromFileHeader(files[k])
		}
	case len(files) == 0:
	case len(files) == len(items):
		for i := range items {
			items[i].Upload = UploadFromFileHeader(files[i])
		}
	default:
		return malformed("cannot match %d files to %d items", len(files), len(items))
	}
	return nil
}

// optionalURL maps a missing or blank URL to nil. Non-blank values are kept
// verbatim.
func optionalURL(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	v := *value
	return &v
}

func firstValue(values map[string][]string, key string) string {
	if vs := values[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func firstPresent(values map[string][]string, keys []string) []string {
	for _, key := range keys {
		if vs := values[key]; len(vs) > 0 {
			return vs
		}
	}
	return nil
}

func firstPresentFiles(files map[string][]*multipart.FileHeader, keys []string) []*multipart.FileHeader {
	for _, key := range keys {
		if fs := files[key]; len(fs) > 0 {
			return fs
		}
	}
	return nil
}
