package config

import (
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// RedactDSN replaces the password in a connection string with "***" so
// the string is safe to log. URL-style strings (postgres) and MySQL
// key-value strings are both recognized; anything else, including plain
// SQLite paths, is returned unchanged.
func RedactDSN(raw string) string {
	if raw == "" {
		return ""
	}

	if strings.Contains(raw, "://") {
		return redactURLPassword(raw)
	}

	if cfg, err := mysql.ParseDSN(raw); err == nil && cfg.Passwd != "" {
		cfg.Passwd = "***"

		return cfg.FormatDSN()
	}

	return raw
}

// redactURLPassword rewrites the userinfo section of raw by hand rather
// than through url.String, which would re-encode the rest of the URL.
func redactURLPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}

	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}

	user, _, ok := strings.Cut(userinfo, ":")
	if !ok {
		return raw
	}

	return scheme + "://" + user + ":***@" + host
}
