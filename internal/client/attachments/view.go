// Package attachments turns a scope's server-side attachment list into a
// display model. It holds no state.
package attachments

import (
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/filex"
)

const (
	EmptyText    = "No attachments uploaded yet."
	ReadyHint    = "Download attachment"
	NotReadyHint = "Attachment is not ready for download"
)

// Item is one displayable attachment.
type Item struct {
	ID           int64
	FileName     string
	Meta         string
	State        models.AttachmentState
	Downloadable bool
	Hint         string
	// Deletable is set by Project when the viewer may manage the scope.
	Deletable bool
}

// View is the projection of one scope. Items keep the server's order.
type View struct {
	Title      string
	Count      int
	CountLabel string
	EmptyText  string
	Items      []Item
}

// Project builds the view. canDelete is the viewer's manage permission on
// the scope owner.
func Project(title string, list []models.Attachment, canDelete bool) View {
	v := View{
		Title:      title,
		Count:      len(list),
		CountLabel: fmt.Sprintf("%d file(s)", len(list)),
		Items:      make([]Item, 0, len(list)),
	}
	if len(list) == 0 {
		v.EmptyText = EmptyText
	}

	for _, a := range list {
		ready := a.State == models.AttachmentActive
		hint := NotReadyHint
		if ready {
			hint = ReadyHint
		}
		v.Items = append(v.Items, Item{
			ID:           a.ID,
			FileName:     a.FileName,
			Meta:         fmt.Sprintf("%s · %s · %s", filex.FormatBytes(a.FileSize), a.ContentType, a.State),
			State:        a.State,
			Downloadable: ready,
			Hint:         hint,
			Deletable:    canDelete,
		})
	}
	return v
}

// CountHeld counts attachments that hold a slot: ACTIVE and PENDING.
func CountHeld(list []models.Attachment) int {
	n := 0
	for _, a := range list {
		if a.State == models.AttachmentActive || a.State == models.AttachmentPending {
			n++
		}
	}
	return n
}

// Find returns the attachment with id.
func Find(list []models.Attachment, id int64) (models.Attachment, bool) {
	for _, a := range list {
		if a.ID == id {
			return a, true
		}
	}
	return models.Attachment{}, false
}

// Render writes the view as plain text.
func Render(w io.Writer, v View) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", v.Title, v.CountLabel)
	if len(v.Items) == 0 {
		fmt.Fprintf(&b, "  %s\n", v.EmptyText)
	}
	for _, it := range v.Items {
		marker := " "
		if !it.Downloadable {
			marker = "!"
		}
		fmt.Fprintf(&b, " %s [%d] %s  %s\n", marker, it.ID, it.FileName, it.Meta)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
