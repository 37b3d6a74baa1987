package vulnlib

import (
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/kvesta/depcheck/pkg/settings"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Client struct {
	Cli *http.Client
	DB  *sql.DB

	// Store is the data directory holding the embedded database.
	Store string

	driver   string
	connStr  string
	user     string
	password string

	baseURL       string
	modifiedURL   string
	startYear     int
	validForHours int
}

type DBRow struct {
	Id          int
	Hash        string
	Vendor      string
	Product     string
	MaxVersion  string
	MinVersion  string
	Description string
	Level       string
	CVEID       string
	Source      string
	PublishDate string
	References  string
	Score       float64
}

// New prepares a client from settings. The database is opened by Init.
func New(s *settings.Settings) (*Client, error) {
	store, err := s.DataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	driver := s.String(settings.KeyDBDriverName)
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	return &Client{
		Cli:           NewHTTPClient(s, true),
		Store:         store,
		driver:        driver,
		connStr:       s.String(settings.KeyDBConnectionString),
		user:          s.String(settings.KeyDBUser),
		password:      s.String(settings.KeyDBPassword),
		baseURL:       s.String(settings.KeyCveURLBase),
		modifiedURL:   s.String(settings.KeyCveURLModified),
		startYear:     s.Int(settings.KeyCveStartYear),
		validForHours: s.Int(settings.KeyCveValidForHours),
	}, nil
}

// NewHTTPClient builds the client used for feeds and repository lookups.
// With useProxy the configured proxy, or the environment proxy, is used.
func NewHTTPClient(s *settings.Settings, useProxy bool) *http.Client {
	timeout := s.ConnectionTimeout()

	tr := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		IdleConnTimeout:    60 * time.Second,
		DisableCompression: true,
	}

	if useProxy {
		tr.Proxy = http.ProxyFromEnvironment

		if server := s.String(settings.KeyProxyServer); server != "" {
			proxy := &url.URL{Scheme: "http", Host: server}
			if port := s.String(settings.KeyProxyPort); port != "" {
				proxy.Host = net.JoinHostPort(server, port)
			}
			if user := s.String(settings.KeyProxyUsername); user != "" {
				proxy.User = url.UserPassword(user, s.String(settings.KeyProxyPassword))
			}
			tr.Proxy = http.ProxyURL(proxy)
		}
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout * 10,
	}
}
