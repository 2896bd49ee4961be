// Package interchange reads and writes the export document that carries a
// complete task tree with its events between installations.
//
// The canonical form is XML:
//
//	<tally-export version="1">
//	  <tasks>
//	    <task taskid="1" parentid="0" subscribed="1" trackable="1">Name</task>
//	  </tasks>
//	  <effort>
//	    <event eventid="5" installationid="1" taskid="1" userid="1" reportid="0"
//	           start="2026-01-02T09:00:00Z" end="2026-01-02T10:00:00Z">comment</event>
//	  </effort>
//	</tally-export>
//
// A JSON rendition with the same field names is accepted as well.
package interchange

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/randalmurphal/tally/internal/model"
	"github.com/randalmurphal/tally/internal/util"
)

// Version is the newest document version this build writes and reads.
const Version = 1

// ErrUnsupportedVersion is returned for documents written by a newer tally.
var ErrUnsupportedVersion = errors.New("unsupported interchange version")

// Format selects the document encoding.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// FormatForPath picks the format from the file extension. Anything other
// than .json is XML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatXML
}

// Document is a full snapshot of tasks and events.
type Document struct {
	Version int
	Tasks   model.TaskList
	Events  model.EventList
}

// NewDocument returns a current-version document.
func NewDocument(tasks model.TaskList, events model.EventList) *Document {
	return &Document{Version: Version, Tasks: tasks, Events: events}
}

type wireDocument struct {
	XMLName xml.Name    `xml:"tally-export" json:"-"`
	Version int         `xml:"version,attr" json:"version"`
	Tasks   []wireTask  `xml:"tasks>task" json:"tasks"`
	Events  []wireEvent `xml:"effort>event" json:"effort"`
}

type wireTask struct {
	TaskID     int    `xml:"taskid,attr" json:"taskid"`
	ParentID   int    `xml:"parentid,attr" json:"parentid"`
	Subscribed flag   `xml:"subscribed,attr" json:"subscribed"`
	Trackable  flag   `xml:"trackable,attr" json:"trackable"`
	ValidFrom  string `xml:"validfrom,attr,omitempty" json:"validfrom,omitempty"`
	ValidUntil string `xml:"validuntil,attr,omitempty" json:"validuntil,omitempty"`
	Comment    string `xml:"comment,attr,omitempty" json:"comment,omitempty"`
	Name       string `xml:",chardata" json:"name"`
}

// flag is a boolean written as 0 or 1. Reading also accepts true and false.
type flag bool

func (f flag) digit() string {
	if f {
		return "1"
	}
	return "0"
}

func parseFlag(s string) (flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true":
		return true, nil
	case "0", "false", "", "null":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag %q (want 0 or 1)", s)
}

func (f flag) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return xml.Attr{Name: name, Value: f.digit()}, nil
}

func (f *flag) UnmarshalXMLAttr(attr xml.Attr) error {
	v, err := parseFlag(attr.Value)
	if err != nil {
		return fmt.Errorf("attribute %s: %w", attr.Name.Local, err)
	}
	*f = v
	return nil
}

func (f flag) MarshalJSON() ([]byte, error) {
	return []byte(f.digit()), nil
}

func (f *flag) UnmarshalJSON(data []byte) error {
	v, err := parseFlag(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

type wireEvent struct {
	EventID        int    `xml:"eventid,attr" json:"eventid"`
	InstallationID int    `xml:"installationid,attr" json:"installationid"`
	TaskID         int    `xml:"taskid,attr" json:"taskid"`
	UserID         int    `xml:"userid,attr" json:"userid"`
	ReportID       int    `xml:"reportid,attr" json:"reportid"`
	Start          string `xml:"start,attr,omitempty" json:"start,omitempty"`
	End            string `xml:"end,attr,omitempty" json:"end,omitempty"`
	Comment        string `xml:",chardata" json:"comment"`
}

// Encode writes doc to w.
func Encode(w io.Writer, doc *Document, format Format) error {
	wire := toWire(doc)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(wire); err != nil {
			return fmt.Errorf("encode json document: %w", err)
		}
	case FormatXML, "":
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return fmt.Errorf("write xml header: %w", err)
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(wire); err != nil {
			return fmt.Errorf("encode xml document: %w", err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return fmt.Errorf("write xml document: %w", err)
		}
	default:
		return fmt.Errorf("unknown interchange format %q", format)
	}
	return nil
}

// Decode reads a document from r. Documents with a version newer than
// Version are rejected with ErrUnsupportedVersion.
func Decode(r io.Reader, format Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var wire wireDocument
	switch format {
	case FormatJSON:
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("parse json document: invalid json")
		}
		version := gjson.GetBytes(data, "version")
		if !version.Exists() {
			return nil, fmt.Errorf("parse json document: missing version")
		}
		if err := checkVersion(int(version.Int())); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("parse json document: %w", err)
		}
	case FormatXML, "":
		if err := xml.Unmarshal(bytes.TrimSpace(data), &wire); err != nil {
			return nil, fmt.Errorf("parse xml document: %w", err)
		}
		if err := checkVersion(wire.Version); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown interchange format %q", format)
	}

	return fromWire(&wire)
}

// ReadFile decodes the document at path, choosing the format by extension.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Decode(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// WriteFile encodes doc to path, choosing the format by extension. The
// file is written next to its destination and renamed into place.
func WriteFile(path string, doc *Document) error {
	return util.WriteAtomic(path, 0644, func(w io.Writer) error {
		return Encode(w, doc, FormatForPath(path))
	})
}

func checkVersion(v int) error {
	if v < 1 {
		return fmt.Errorf("document version %d is invalid", v)
	}
	if v > Version {
		return fmt.Errorf("%w: document version %d, supported %d", ErrUnsupportedVersion, v, Version)
	}
	return nil
}

func toWire(doc *Document) wireDocument {
	wire := wireDocument{
		Version: doc.Version,
		Tasks:   make([]wireTask, 0, len(doc.Tasks)),
		Events:  make([]wireEvent, 0, len(doc.Events)),
	}
	if wire.Version == 0 {
		wire.Version = Version
	}
	for _, t := range doc.Tasks {
		wire.Tasks = append(wire.Tasks, wireTask{
			TaskID:     t.ID,
			ParentID:   t.ParentID,
			Subscribed: flag(t.Subscribed),
			Trackable:  flag(t.Trackable),
			ValidFrom:  formatTimePtr(t.ValidFrom),
			ValidUntil: formatTimePtr(t.ValidUntil),
			Comment:    t.Comment,
			Name:       t.Name,
		})
	}
	for _, e := range doc.Events {
		wire.Events = append(wire.Events, wireEvent{
			EventID:        e.ID,
			InstallationID: e.InstallationID,
			TaskID:         e.TaskID,
			UserID:         e.UserID,
			ReportID:       e.ReportID,
			Start:          formatTime(e.Start),
			End:            formatTime(e.End),
			Comment:        e.Comment,
		})
	}
	return wire
}

func fromWire(wire *wireDocument) (*Document, error) {
	doc := &Document{
		Version: wire.Version,
		Tasks:   make(model.TaskList, 0, len(wire.Tasks)),
		Events:  make(model.EventList, 0, len(wire.Events)),
	}
	for i, wt := range wire.Tasks {
		from, err := parseTimePtr(wt.ValidFrom)
		if err != nil {
			return nil, fmt.Errorf("task %d (#%d) validfrom: %w", wt.TaskID, i+1, err)
		}
		until, err := parseTimePtr(wt.ValidUntil)
		if err != nil {
			return nil, fmt.Errorf("task %d (#%d) validuntil: %w", wt.TaskID, i+1, err)
		}
		doc.Tasks = append(doc.Tasks, model.Task{
			ID:         wt.TaskID,
			Name:       strings.TrimSpace(wt.Name),
			ParentID:   wt.ParentID,
			ValidFrom:  from,
			ValidUntil: until,
			Trackable:  bool(wt.Trackable),
			Subscribed: bool(wt.Subscribed),
			Comment:    wt.Comment,
		})
	}
	for i, we := range wire.Events {
		start, err := parseTime(we.Start)
		if err != nil {
			return nil, fmt.Errorf("event %d (#%d) start: %w", we.EventID, i+1, err)
		}
		end, err := parseTime(we.End)
		if err != nil {
			return nil, fmt.Errorf("event %d (#%d) end: %w", we.EventID, i+1, err)
		}
		doc.Events = append(doc.Events, model.Event{
			ID:             we.EventID,
			InstallationID: we.InstallationID,
			UserID:         we.UserID,
			ReportID:       we.ReportID,
			TaskID:         we.TaskID,
			Start:          start,
			End:            end,
			Comment:        we.Comment,
		})
	}
	return doc, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return model.Timestamp(t).Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return model.Timestamp(t), nil
}

func parseTimePtr(s string) (*time.Time, error) {
	t, err := parseTime(s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}
