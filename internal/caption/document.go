package caption

import (
	"path"
	"strings"

	"artframe/internal/gallery"
)

// ModalDoc is the detail view of an image.
type ModalDoc struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Header      string `json:"header"`
	Description string `json:"description,omitempty"`
	Details     string `json:"details,omitempty"`
	Time        string `json:"time,omitempty"`
	Location    string `json:"location,omitempty"`
	Credit      string `json:"credit,omitempty"`
}

// CaptionDoc is the caption screen view of an image.
type CaptionDoc struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	Location string `json:"location,omitempty"`
	Byline   string `json:"byline,omitempty"`
	Camera   string `json:"camera,omitempty"`
	Settings string `json:"settings,omitempty"`
}

// ID strips the extension from a file name.
func ID(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

func headerDefault(text gallery.Text) string {
	return or(text.Get("header"), text.Get("description"))
}

// Modal builds the detail view. It returns nil when the image has no header.
// A description equal to the header is dropped.
func Modal(rec gallery.Record, text gallery.Text) *ModalDoc {
	header := Title(rec, headerDefault(text))
	if header == "" {
		return nil
	}
	description := Description(rec, text.Get("description"))
	if description == header {
		description = ""
	}
	return &ModalDoc{
		ID:          ID(rec.Name),
		Name:        rec.Name,
		Header:      header,
		Description: description,
		Details:     strings.ReplaceAll(UserComment(rec, text.Get("details")), "\n", "<br>"),
		Time:        DateOriginal(rec, text.Get("time")),
		Location:    Location(rec, text.Get("location")),
		Credit:      Credit(rec, text.Get("credit")),
	}
}

// Caption builds the caption view. photographer is the byline used when
// neither the image nor its sidecar names one. It returns nil when the image
// has no title.
func Caption(rec gallery.Record, text gallery.Text, photographer string) *CaptionDoc {
	title := Title(rec, headerDefault(text))
	if title == "" {
		return nil
	}
	return &CaptionDoc{
		ID:       ID(rec.Name),
		Name:     rec.Name,
		Title:    title,
		Location: CaptionLocation(rec, text.Get("location")),
		Byline:   Byline(rec, or(text.Get("photographer"), photographer)),
		Camera:   Camera(rec),
		Settings: Settings(rec),
	}
}
