// Package dsn implements the connection-string parser and option mapper
// of §4.F: the `K=V;K2=V2` grammar of §6.3, mapped onto the closed set of
// recognized keys.
package dsn

import (
	"strconv"
	"strings"

	"github.com/SimonWaldherr/rpcodbc/internal/errs"
	"github.com/SimonWaldherr/rpcodbc/internal/obslog"
)

// Options holds the decoded, recognized connection options.
type Options struct {
	Account             string
	Host                string
	Password            string
	User                string
	Port                int
	HasPort             bool
	Protocol            string
	Database            string
	Warehouse           string
	Role                string
	Schema              string
	PrivateKeyFile      string
	Authenticator       string
	PrivateKeyPassword  string
	Token               string
}

var keyMap = map[string]func(*Options, string) error{
	"ACCOUNT": func(o *Options, v string) error { o.Account = v; return nil },
	"SERVER":  func(o *Options, v string) error { o.Host = v; return nil },
	"PWD":     func(o *Options, v string) error { o.Password = v; return nil },
	"UID":     func(o *Options, v string) error { o.User = v; return nil },
	"PORT": func(o *Options, v string) error {
		p, err := strconv.Atoi(v)
		if err != nil {
			return errs.New(errs.InvalidPort, "PORT %q is not an integer", v)
		}
		o.Port = p
		o.HasPort = true
		return nil
	},
	"PROTOCOL":            func(o *Options, v string) error { o.Protocol = v; return nil },
	"DATABASE":            func(o *Options, v string) error { o.Database = v; return nil },
	"WAREHOUSE":           func(o *Options, v string) error { o.Warehouse = v; return nil },
	"ROLE":                func(o *Options, v string) error { o.Role = v; return nil },
	"SCHEMA":              func(o *Options, v string) error { o.Schema = v; return nil },
	"PRIV_KEY_FILE":       func(o *Options, v string) error { o.PrivateKeyFile = v; return nil },
	"AUTHENTICATOR":       func(o *Options, v string) error { o.Authenticator = v; return nil },
	"PRIV_KEY_FILE_PWD":   func(o *Options, v string) error { o.PrivateKeyPassword = v; return nil },
	"TOKEN":               func(o *Options, v string) error { o.Token = v; return nil },
}

// Parse splits connStr on `;`, then each pair on the first `=`. Tokens
// without `=` are silently dropped. `DRIVER` is consumed and ignored.
// Keys outside the closed map are logged as a warning and ignored. A malformed PORT aborts
// parsing with an *errs.Error.
func Parse(connStr string) (Options, error) {
	var opts Options
	for _, tok := range strings.Split(connStr, ";") {
		if tok == "" {
			continue
		}
		eq := strings.IndexByte(tok, '=')
		if eq < 0 {
			continue
		}
		key := tok[:eq]
		value := tok[eq+1:]
		if key == "DRIVER" {
			continue
		}
		setter, ok := keyMap[key]
		if !ok {
			obslog.Warnf("dsn: ignoring unrecognized connection-string key %q", key)
			continue
		}
		if err := setter(&opts, value); err != nil {
			return Options{}, err
		}
	}
	return opts, nil
}

// BuildFromConnect synthesizes a connection string equivalent to what a
// SQLDriverConnect caller would have passed, from SQLConnect's three
// separate arguments, per the §9 decision that Connect reuses
// DriverConnect's path.
func BuildFromConnect(server, user, pwd string) string {
	var b strings.Builder
	if server != "" {
		b.WriteString("SERVER=")
		b.WriteString(server)
		b.WriteByte(';')
	}
	if user != "" {
		b.WriteString("UID=")
		b.WriteString(user)
		b.WriteByte(';')
	}
	if pwd != "" {
		b.WriteString("PWD=")
		b.WriteString(pwd)
		b.WriteByte(';')
	}
	return b.String()
}

// Format renders opts back to the `K=V;...` grammar, the inverse of
// Parse, used by the idempotence property in §8.
func (o Options) Format() string {
	var b strings.Builder
	write := func(k, v string) {
		if v == "" {
			return
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
		b.WriteByte(';')
	}
	write("ACCOUNT", o.Account)
	write("SERVER", o.Host)
	write("PWD", o.Password)
	write("UID", o.User)
	if o.HasPort {
		b.WriteString("PORT=")
		b.WriteString(strconv.Itoa(o.Port))
		b.WriteByte(';')
	}
	write("PROTOCOL", o.Protocol)
	write("DATABASE", o.Database)
	write("WAREHOUSE", o.Warehouse)
	write("ROLE", o.Role)
	write("SCHEMA", o.Schema)
	write("PRIV_KEY_FILE", o.PrivateKeyFile)
	write("AUTHENTICATOR", o.Authenticator)
	write("PRIV_KEY_FILE_PWD", o.PrivateKeyPassword)
	write("TOKEN", o.Token)
	return b.String()
}
