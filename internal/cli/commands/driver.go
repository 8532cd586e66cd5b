package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/leapstack-labs/pgcatalog/pkg/catalog"
)

// errNotConfirmed is returned when a prompt cannot be shown and --yes was
// not given.
var errNotConfirmed = errors.New("confirmation required: rerun with --yes to proceed")

// terminalDriver carries out catalog interactions on a terminal. Text the
// host would open in an editor is printed and kept so the caller can run it.
type terminalDriver struct {
	out    io.Writer
	errOut io.Writer
	in     *bufio.Reader
	// interactive is false when there is no user to answer prompts.
	interactive bool
	yes         bool
	styles      *styles

	mu        sync.Mutex
	buffers   []string
	refreshed bool
}

func newTerminalDriver(cmdCtx *CommandContext) *terminalDriver {
	return &terminalDriver{
		out:         cmdCtx.Out,
		errOut:      cmdCtx.ErrOut,
		in:          bufio.NewReader(cmdCtx.In),
		interactive: isTerminal(cmdCtx.In),
		yes:         cmdCtx.Cfg.Yes,
		styles:      newStyles(),
	}
}

func (d *terminalDriver) InsertTextInNewBuffer(text string) {
	d.mu.Lock()
	d.buffers = append(d.buffers, text)
	d.mu.Unlock()
	_, _ = fmt.Fprintln(d.out, text)
}

func (d *terminalDriver) InsertTextAtSelection(text string) {
	_, _ = fmt.Fprintln(d.out, text)
}

func (d *terminalDriver) Notify(message string, severity catalog.Severity) {
	_, _ = fmt.Fprintln(d.errOut, d.styles.severity(severity).Render(severity.String()+":"), message)
}

func (d *terminalDriver) ConfirmAndExecute(ctx context.Context, callback func(ctx context.Context) error) error {
	if d.yes {
		return callback(ctx)
	}
	if !d.interactive {
		return errNotConfirmed
	}
	_, _ = fmt.Fprint(d.errOut, d.styles.Warning.Render("Are you sure?")+" This cannot be undone. [y/N] ")
	answer, err := d.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return callback(ctx)
	}
	_, _ = fmt.Fprintln(d.errOut, "Cancelled.")
	return nil
}

func (d *terminalDriver) RefreshCatalog() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshed = true
}

// takeBuffers returns and clears the text opened since the last call.
func (d *terminalDriver) takeBuffers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.buffers
	d.buffers = nil
	return out
}

var _ catalog.Driver = (*terminalDriver)(nil)
