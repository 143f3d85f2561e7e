package memory

import (
	"context"
	"sync"

	"github.com/evanschultz/taskboard/internal/app"
	"github.com/evanschultz/taskboard/internal/domain"
)

// Drafts is a process-local draft slot. It stores the encoded form so reads
// go through the same decoding as persistent stores.
type Drafts struct {
	mu  sync.Mutex
	raw []byte
}

var _ app.DraftStore = (*Drafts)(nil)

// NewDrafts constructs an empty slot.
func NewDrafts() *Drafts {
	return &Drafts{}
}

// Save writes the draft.
func (d *Drafts) Save(_ context.Context, draft domain.Draft) error {
	raw, err := domain.EncodeDraft(draft)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raw = raw
	return nil
}

// Load reads the draft.
func (d *Drafts) Load(context.Context) (domain.Draft, bool, error) {
	d.mu.Lock()
	raw := d.raw
	d.mu.Unlock()
	if raw == nil {
		return domain.Draft{}, false, nil
	}
	draft, err := domain.DecodeDraft(raw)
	if err != nil {
		return domain.Draft{}, false, err
	}
	return draft, true, nil
}

// Clear empties the slot.
func (d *Drafts) Clear(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raw = nil
	return nil
}
