package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DurationFormat selects how durations are displayed.
type DurationFormat int

const (
	// DurationMinutes shows "1:30".
	DurationMinutes DurationFormat = iota
	// DurationDecimal shows "1.50".
	DurationDecimal
)

// Format renders d in this format.
func (f DurationFormat) Format(d time.Duration) string {
	if f == DurationDecimal {
		return strconv.FormatFloat(d.Hours(), 'f', 2, 64)
	}
	minutes := int(d.Round(time.Minute) / time.Minute)
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

func (f DurationFormat) String() string {
	if f == DurationDecimal {
		return "decimal"
	}
	return "minutes"
}

// ParseDurationFormat accepts the names returned by String.
func ParseDurationFormat(s string) (DurationFormat, error) {
	switch strings.ToLower(s) {
	case "minutes", "0":
		return DurationMinutes, nil
	case "decimal", "1":
		return DurationDecimal, nil
	default:
		return DurationMinutes, fmt.Errorf("unknown duration format %q", s)
	}
}

// FontSize is the preferred UI font size.
type FontSize int

const (
	FontSmall FontSize = iota
	FontRegular
	FontLarge
)

// Configuration holds user preferences that live in the database.
// It is an explicit value: the controller and the storage backend receive
// a pointer to the same instance and the controller loads and saves it
// through the MetaData table.
type Configuration struct {
	UserID           int
	UserName         string
	InstallationID   int
	InstallationName string

	DurationFormat           DurationFormat
	DetectIdleTime           bool
	FontSize                 FontSize
	RequestEventComment      bool
	WarnUnuploadedTimesheets bool
	ShowOnlyCurrentTasks     bool
	EnableCommandInterface   bool
}

// DefaultConfiguration returns the preferences of a fresh installation.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		UserName:                 "tally user",
		InstallationName:         "local",
		DurationFormat:           DurationMinutes,
		DetectIdleTime:           true,
		FontSize:                 FontRegular,
		WarnUnuploadedTimesheets: true,
	}
}

// Field is one persisted Configuration value and its MetaData key.
type Field struct {
	Key string
	Get func(c *Configuration) string
	Set func(c *Configuration, value string) error
}

// Fields lists every Configuration value persisted through MetaData.
// New keys may be appended freely: an absent key leaves the default in
// place when reading an older database.
var Fields = []Field{
	intField("user_id", func(c *Configuration) *int { return &c.UserID }),
	stringField("user_name", func(c *Configuration) *string { return &c.UserName }),
	intField("installation_id", func(c *Configuration) *int { return &c.InstallationID }),
	stringField("installation_name", func(c *Configuration) *string { return &c.InstallationName }),
	{
		Key: "duration_format",
		Get: func(c *Configuration) string { return c.DurationFormat.String() },
		Set: func(c *Configuration, v string) error {
			f, err := ParseDurationFormat(v)
			if err != nil {
				return err
			}
			c.DurationFormat = f
			return nil
		},
	},
	boolField("detect_idle_time", func(c *Configuration) *bool { return &c.DetectIdleTime }),
	{
		Key: "font_size",
		Get: func(c *Configuration) string { return strconv.Itoa(int(c.FontSize)) },
		Set: func(c *Configuration, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			if n < int(FontSmall) || n > int(FontLarge) {
				return fmt.Errorf("font size %d out of range", n)
			}
			c.FontSize = FontSize(n)
			return nil
		},
	},
	boolField("request_event_comment", func(c *Configuration) *bool { return &c.RequestEventComment }),
	boolField("warn_unuploaded_timesheets", func(c *Configuration) *bool { return &c.WarnUnuploadedTimesheets }),
	boolField("show_only_current_tasks", func(c *Configuration) *bool { return &c.ShowOnlyCurrentTasks }),
	boolField("enable_command_interface", func(c *Configuration) *bool { return &c.EnableCommandInterface }),
}

// LookupField returns the field stored under key.
func LookupField(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// FieldKeys returns all persisted keys, sorted.
func FieldKeys() []string {
	keys := make([]string, len(Fields))
	for i, f := range Fields {
		keys[i] = f.Key
	}
	sort.Strings(keys)
	return keys
}

func intField(key string, ptr func(*Configuration) *int) Field {
	return Field{
		Key: key,
		Get: func(c *Configuration) string { return strconv.Itoa(*ptr(c)) },
		Set: func(c *Configuration, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*ptr(c) = n
			return nil
		},
	}
}

func stringField(key string, ptr func(*Configuration) *string) Field {
	return Field{
		Key: key,
		Get: func(c *Configuration) string { return *ptr(c) },
		Set: func(c *Configuration, v string) error {
			*ptr(c) = v
			return nil
		},
	}
}

func boolField(key string, ptr func(*Configuration) *bool) Field {
	return Field{
		Key: key,
		Get: func(c *Configuration) string { return strconv.FormatBool(*ptr(c)) },
		Set: func(c *Configuration, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			*ptr(c) = b
			return nil
		},
	}
}
