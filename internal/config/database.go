package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ConnString returns the Postgres connection string, or "" when no
// database is configured. A DSN wins over the discrete fields.
func (d *DatabaseConfig) ConnString() string {
	if dsn := strings.TrimSpace(d.DSN); dsn != "" {
		return dsn
	}
	host := strings.TrimSpace(d.Host)
	if host == "" {
		return ""
	}

	u := url.URL{Scheme: "postgres", Host: host}
	if d.Port != 0 {
		u.Host = net.JoinHostPort(host, strconv.Itoa(d.Port))
	}
	switch {
	case d.User != "" && d.Password != "":
		u.User = url.UserPassword(d.User, d.Password)
	case d.User != "":
		u.User = url.User(d.User)
	}
	if d.Database != "" {
		u.Path = "/" + d.Database
	}
	if d.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", d.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Enabled reports whether a database is configured at all.
func (d *DatabaseConfig) Enabled() bool {
	return d.ConnString() != ""
}
