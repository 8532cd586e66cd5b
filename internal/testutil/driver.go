package testutil

import (
	"context"
	"sync"

	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
)

// Notification is one recorded call to Notify.
type Notification struct {
	Message  string
	Severity catalog.Severity
}

// RecordingDriver is a catalog.Driver that records every host callback.
// Confirm controls the answer to ConfirmAndExecute.
type RecordingDriver struct {
	Confirm bool

	mu            sync.Mutex
	Buffers       []string
	Inserted      []string
	Notifications []Notification
	Confirmations int
	Refreshes     int
}

// NewRecordingDriver returns a driver that confirms every prompt.
func NewRecordingDriver() *RecordingDriver {
	return &RecordingDriver{Confirm: true}
}

func (d *RecordingDriver) InsertTextInNewBuffer(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Buffers = append(d.Buffers, text)
}

func (d *RecordingDriver) InsertTextAtSelection(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Inserted = append(d.Inserted, text)
}

func (d *RecordingDriver) Notify(message string, severity catalog.Severity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Notifications = append(d.Notifications, Notification{Message: message, Severity: severity})
}

func (d *RecordingDriver) ConfirmAndExecute(ctx context.Context, callback func(ctx context.Context) error) error {
	d.mu.Lock()
	d.Confirmations++
	confirm := d.Confirm
	d.mu.Unlock()
	if !confirm {
		return nil
	}
	return callback(ctx)
}

func (d *RecordingDriver) RefreshCatalog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Refreshes++
}

// LastBuffer returns the most recent new-buffer text, or "".
func (d *RecordingDriver) LastBuffer() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Buffers) == 0 {
		return ""
	}
	return d.Buffers[len(d.Buffers)-1]
}

var _ catalog.Driver = (*RecordingDriver)(nil)
