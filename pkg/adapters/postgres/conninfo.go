package postgres

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultPort           = "5432"
)

// Settings understood by libpq that pgx does not negotiate. They are
// validated as options but never forwarded to the driver.
var unforwardedSettings = map[string]bool{
	OptRequireAuth:    true,
	OptChannelBinding: true,
	OptConnectTimeout: true,
}

// parseConnString parses a libpq connection string, either in URI form
// (postgres://...) or in keyword/value form (host=... port=...).
func parseConnString(s string) (map[string]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]string{}, nil
	}
	if strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://") {
		return parseURI(s)
	}
	return parseKeywordValue(s)
}

func parseURI(s string) (map[string]string, error) {
	// url.Parse cannot read libpq host lists (h1:5432,h2:5433); the host
	// part of the authority is parsed separately.
	scheme, rest, _ := strings.Cut(s, "://")
	authEnd := strings.IndexAny(rest, "/?")
	if authEnd < 0 {
		authEnd = len(rest)
	}
	authority := rest[:authEnd]
	userinfo, hostList := "", authority
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		userinfo, hostList = authority[:i+1], authority[i+1:]
	}

	u, err := url.Parse(scheme + "://" + userinfo + rest[authEnd:])
	if err != nil {
		return nil, fmt.Errorf("invalid URI %q: %w", s, err)
	}
	settings := make(map[string]string)
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			settings[OptUser] = name
		}
		if pw, ok := u.User.Password(); ok {
			settings[OptPassword] = pw
		}
	}
	hosts, ports, err := parseHostList(hostList)
	if err != nil {
		return nil, fmt.Errorf("invalid URI %q: %w", s, err)
	}
	if hosts != "" {
		settings[OptHost] = hosts
	}
	if ports != "" {
		settings[OptPort] = ports
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		settings[OptDBName] = db
	}
	for k, v := range u.Query() {
		if len(v) > 0 {
			settings[k] = v[0]
		}
	}
	return settings, nil
}

// parseHostList splits a URI host list into libpq's comma-separated host
// and port settings. Entries without a port get the default port when any
// other entry names one.
func parseHostList(list string) (hosts, ports string, err error) {
	if list == "" {
		return "", "", nil
	}
	entries := strings.Split(list, ",")
	hostParts := make([]string, len(entries))
	portParts := make([]string, len(entries))
	anyPort := false
	for i, entry := range entries {
		host, port := entry, ""
		if strings.HasPrefix(entry, "[") {
			end := strings.Index(entry, "]")
			if end < 0 {
				return "", "", fmt.Errorf("missing \"]\" in host %q", entry)
			}
			host, port = entry[1:end], strings.TrimPrefix(entry[end+1:], ":")
		} else if j := strings.LastIndex(entry, ":"); j >= 0 {
			host, port = entry[:j], entry[j+1:]
		}
		if host, err = url.PathUnescape(host); err != nil {
			return "", "", err
		}
		if port != "" {
			if _, err := strconv.ParseUint(port, 10, 16); err != nil {
				return "", "", fmt.Errorf("invalid port %q", port)
			}
			anyPort = true
		}
		hostParts[i], portParts[i] = host, port
	}
	if anyPort {
		for i, p := range portParts {
			if p == "" {
				portParts[i] = defaultPort
			}
		}
		ports = strings.Join(portParts, ",")
	}
	return strings.Join(hostParts, ","), ports, nil
}

func parseKeywordValue(s string) (map[string]string, error) {
	settings := make(map[string]string)
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return settings, nil
		}

		end := strings.IndexFunc(s, func(r rune) bool { return r == '=' || unicode.IsSpace(r) })
		if end < 0 {
			return nil, fmt.Errorf("missing \"=\" after %q in connection info string", s)
		}
		key := s[:end]
		s = strings.TrimLeftFunc(s[end:], unicode.IsSpace)
		if !strings.HasPrefix(s, "=") {
			return nil, fmt.Errorf("missing \"=\" after %q in connection info string", key)
		}
		s = strings.TrimLeftFunc(s[1:], unicode.IsSpace)

		var (
			val strings.Builder
			i   int
		)
		if strings.HasPrefix(s, "'") {
			closed := false
			for i = 1; i < len(s); i++ {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					i++
					val.WriteByte(s[i])
					continue
				}
				if c == '\'' {
					closed = true
					i++
					break
				}
				val.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quoted string in connection info string")
			}
		} else {
			for i = 0; i < len(s); i++ {
				c := s[i]
				if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
					break
				}
				if c == '\\' && i+1 < len(s) {
					i++
					c = s[i]
				}
				val.WriteByte(c)
			}
		}
		settings[key] = val.String()
		s = s[i:]
	}
}

// mergeSettings layers the non-empty option values over the parsed
// connection string.
func mergeSettings(connStr []string, options map[string]string) (map[string]string, error) {
	var base string
	if len(connStr) > 0 {
		base = connStr[0]
	}
	settings, err := parseConnString(base)
	if err != nil {
		return nil, err
	}
	for k, v := range options {
		if v == "" {
			continue
		}
		if opt, ok := LookupOption(k); ok && opt.Kind == adapter.OptionPath {
			v = expandHome(v)
		}
		settings[k] = v
	}
	return settings, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// connectTimeout reads connect_timeout as (possibly fractional) seconds.
func connectTimeout(settings map[string]string) (time.Duration, error) {
	raw, ok := settings[OptConnectTimeout]
	if !ok || raw == "" {
		return defaultConnectTimeout, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("could not convert %q to a number of seconds", raw)
	}
	if secs <= 0 {
		return defaultConnectTimeout, nil
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// renderDSN formats settings as a keyword/value string for pgx, sorted by
// key and with every value quoted.
func renderDSN(settings map[string]string) string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		if unforwardedSettings[k] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.ReplaceAll(settings[k], `\`, `\\`)
		v = strings.ReplaceAll(v, `'`, `\'`)
		parts = append(parts, fmt.Sprintf("%s='%s'", k, v))
	}
	return strings.Join(parts, " ")
}

// connectionID renders host:port/dbname with libpq's defaults filled in.
func connectionID(settings map[string]string) string {
	get := func(key, def string) string {
		if v := settings[key]; v != "" {
			return v
		}
		return def
	}
	return fmt.Sprintf("%s:%s/%s", get(OptHost, "localhost"), get(OptPort, defaultPort), get(OptDBName, "postgres"))
}
