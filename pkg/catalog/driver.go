package catalog

import "context"

// Severity of a host notification.
type Severity int

const (
	SeverityInformation Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInformation:
		return "information"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Driver is the set of host callbacks an interaction may use.
type Driver interface {
	// InsertTextInNewBuffer opens a new editor buffer containing text.
	InsertTextInNewBuffer(text string)
	// InsertTextAtSelection replaces the current selection with text.
	InsertTextAtSelection(text string)
	Notify(message string, severity Severity)
	// ConfirmAndExecute asks the user to confirm and runs callback if they do.
	ConfirmAndExecute(ctx context.Context, callback func(ctx context.Context) error) error
	// RefreshCatalog tells the host to discard and rebuild the tree.
	RefreshCatalog()
}
