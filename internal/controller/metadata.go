package controller

import (
	"context"

	"github.com/randalmurphal/tally/internal/config"
)

// PersistMetaData writes every Configuration field to MetaData.
func (c *Controller) PersistMetaData(ctx context.Context) error {
	b, err := c.connected()
	if err != nil {
		return err
	}
	for _, f := range config.Fields {
		if err := b.SetMetaData(ctx, f.Key, f.Get(c.cfg)); err != nil {
			return err
		}
	}
	return nil
}

// ProvideMetaData reads the Configuration back from MetaData. Absent keys
// keep their current value; unparsable values are logged and skipped.
func (c *Controller) ProvideMetaData(ctx context.Context) error {
	b, err := c.connected()
	if err != nil {
		return err
	}
	for _, f := range config.Fields {
		value, ok, err := b.GetMetaData(ctx, f.Key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := f.Set(c.cfg, value); err != nil {
			c.logger.Warn("ignoring stored setting", "key", f.Key, "value", value, "error", err)
		}
	}
	return nil
}

// MetaData returns the raw MetaData value stored under key.
func (c *Controller) MetaData(ctx context.Context, key string) (string, bool, error) {
	b, err := c.connected()
	if err != nil {
		return "", false, err
	}
	return b.GetMetaData(ctx, key)
}

// SetMetaData stores a raw MetaData value.
func (c *Controller) SetMetaData(ctx context.Context, key, value string) error {
	b, err := c.connected()
	if err != nil {
		return err
	}
	return b.SetMetaData(ctx, key, value)
}
