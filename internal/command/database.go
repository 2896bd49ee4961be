package command

import (
	"context"
	"fmt"

	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/interchange"
)

// ImportDatabase replaces all tasks and events with the contents of an
// interchange document. It cannot be undone.
type ImportDatabase struct {
	base
	path string
	doc  *interchange.Document
}

// NewImportDatabase returns a command that imports the document at path.
func NewImportDatabase(emitter Emitter, path string) *ImportDatabase {
	return &ImportDatabase{
		base: newBase(fmt.Sprintf("import %s", path), emitter, false),
		path: path,
	}
}

// NewImportDocument returns a command that imports an already decoded
// document.
func NewImportDocument(emitter Emitter, doc *interchange.Document) *ImportDatabase {
	return &ImportDatabase{
		base: newBase("import document", emitter, false),
		doc:  doc,
	}
}

// Document returns the parsed document, once prepared.
func (c *ImportDatabase) Document() *interchange.Document { return c.doc }

// Prepare reads and parses the document.
func (c *ImportDatabase) Prepare() error {
	return c.prepare(func() error {
		if c.doc != nil {
			return nil
		}
		doc, err := interchange.ReadFile(c.path)
		if err != nil {
			return tallyerrors.ErrImportRejected(err.Error()).WithCause(err)
		}
		c.doc = doc
		return nil
	})
}

// Execute replaces the database contents in one transaction.
func (c *ImportDatabase) Execute(ctx context.Context, f Facade) bool {
	return c.execute(func() error {
		if diag := f.SetAllTasksAndEvents(ctx, c.doc.Tasks, c.doc.Events); diag != "" {
			return tallyerrors.ErrImportRejected(diag)
		}
		return nil
	})
}

// Finalize reports what was imported.
func (c *ImportDatabase) Finalize() {
	var msg string
	if c.doc != nil {
		msg = fmt.Sprintf("Imported %d tasks and %d events", len(c.doc.Tasks), len(c.doc.Events))
	}
	c.finalize(msg)
}

// ExportDatabase writes all tasks and events to an interchange document.
type ExportDatabase struct {
	base
	path   string
	tasks  int
	events int
}

// NewExportDatabase returns a command that exports to path. The format
// follows the file extension.
func NewExportDatabase(emitter Emitter, path string) *ExportDatabase {
	return &ExportDatabase{
		base: newBase(fmt.Sprintf("export %s", path), emitter, false),
		path: path,
	}
}

// Prepare checks the destination.
func (c *ExportDatabase) Prepare() error {
	return c.prepare(func() error {
		if c.path == "" {
			return tallyerrors.ErrConfigInvalid("path", "export needs a destination file")
		}
		return nil
	})
}

// Execute reads tasks and events and writes the document.
func (c *ExportDatabase) Execute(ctx context.Context, f Facade) bool {
	return c.execute(func() error {
		tasks, err := f.GetTasks(ctx)
		if err != nil {
			return err
		}
		events, err := f.GetEvents(ctx)
		if err != nil {
			return err
		}
		if err := interchange.WriteFile(c.path, interchange.NewDocument(tasks, events)); err != nil {
			return tallyerrors.Wrap(err, fmt.Sprintf("writing %s failed", c.path))
		}
		c.tasks, c.events = len(tasks), len(events)
		return nil
	})
}

// Finalize reports what was exported.
func (c *ExportDatabase) Finalize() {
	c.finalize(fmt.Sprintf("Exported %d tasks and %d events to %s", c.tasks, c.events, c.path))
}
