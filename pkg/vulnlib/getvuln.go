package vulnlib

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kvesta/depcheck/config"
)

const (
	propLastCheck  = "nvd.lastcheck"
	propLastUpdate = "nvd.lastupdate"

	fullRefreshAfter = 7 * 24 * time.Hour
)

var now = time.Now

// Update refreshes the database from the NVD feeds. Init must have been called.
func (c *Client) Update(ctx context.Context) error {
	if c.DB == nil {
		return fmt.Errorf("database is not initialized")
	}

	current := now()

	lastCheck, err := c.timeProperty(propLastCheck)
	if err != nil {
		return err
	}

	if !lastCheck.IsZero() && current.Sub(lastCheck) < time.Duration(c.validForHours)*time.Hour {
		config.Infof("Vulnerability database was checked within the last %d hours, skipping update", c.validForHours)
		return nil
	}

	lastUpdate, err := c.timeProperty(propLastUpdate)
	if err != nil {
		return err
	}

	urls := c.feedURLs(current, lastUpdate)
	config.Infof("%s", config.Green("Begin updating vulnerability database"))

	if err = c.GetCvss(ctx, urls); err != nil {
		return err
	}

	stamp := strconv.FormatInt(current.Unix(), 10)
	if err = c.SetProperty(propLastUpdate, stamp); err != nil {
		return fmt.Errorf("failed to record update time: %w", err)
	}
	if err = c.SetProperty(propLastCheck, stamp); err != nil {
		return fmt.Errorf("failed to record check time: %w", err)
	}

	return nil
}

// feedURLs picks the yearly feeds for a full refresh, or the modified feed
// when the database is recent enough.
func (c *Client) feedURLs(current, lastUpdate time.Time) []string {
	if !lastUpdate.IsZero() && current.Sub(lastUpdate) <= fullRefreshAfter && c.modifiedURL != "" {
		return []string{c.modifiedURL}
	}

	start := c.startYear
	if start <= 0 {
		start = 2002
	}

	var urls []string
	for year := start; year <= current.Year(); year++ {
		urls = append(urls, fmt.Sprintf(c.baseURL, year))
	}
	return urls
}

func (c *Client) timeProperty(key string) (time.Time, error) {
	value, err := c.GetProperty(key)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if value == "" {
		return time.Time{}, nil
	}

	sec, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		config.Warnf("Ignoring malformed %s value %q", key, value)
		return time.Time{}, nil
	}
	return time.Unix(sec, 0), nil
}
