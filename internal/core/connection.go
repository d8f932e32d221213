package core

import (
	"context"

	"github.com/SimonWaldherr/rpcodbc/internal/diag"
	"github.com/SimonWaldherr/rpcodbc/internal/dsn"
	"github.com/SimonWaldherr/rpcodbc/internal/errs"
	"github.com/SimonWaldherr/rpcodbc/internal/rpcclient"
)

// ConnState is the two-variant Connection type of §3.
type ConnState int

const (
	Disconnected ConnState = iota
	Connected
)

// Connection is bound to a parent environment and, once Connected, owns
// an RPC client session plus the remote database and connection
// handles.
type Connection struct {
	state   ConnState
	facade  rpcclient.Facade
	db      rpcclient.DatabaseHandle
	conn    rpcclient.ConnectionHandle
	diag    diag.Queue
}

// NewConnection constructs a Disconnected connection. The facade is
// supplied at Connect time, not here; the connection string has no key
// that names the RPC target.
func NewConnection() *Connection {
	return &Connection{state: Disconnected}
}

// Diagnostics returns the connection's diagnostic queue.
func (c *Connection) Diagnostics() *diag.Queue { return &c.diag }

// IsConnected reports whether the connection has completed
// connection_init successfully.
func (c *Connection) IsConnected() bool { return c.state == Connected }

// Facade returns the connection's RPC client, once Connected.
func (c *Connection) Facade() rpcclient.Facade { return c.facade }

// RemoteHandle returns the remote connection handle, once Connected.
func (c *Connection) RemoteHandle() rpcclient.ConnectionHandle { return c.conn }

var optionOrder = []string{
	"ACCOUNT", "SERVER", "UID", "PWD", "PROTOCOL", "DATABASE",
	"WAREHOUSE", "ROLE", "SCHEMA", "PRIV_KEY_FILE", "AUTHENTICATOR",
	"PRIV_KEY_FILE_PWD", "TOKEN",
}

func optionValues(opts dsn.Options) map[string]string {
	return map[string]string{
		"ACCOUNT":           opts.Account,
		"SERVER":            opts.Host,
		"UID":               opts.User,
		"PWD":               opts.Password,
		"PROTOCOL":          opts.Protocol,
		"DATABASE":          opts.Database,
		"WAREHOUSE":         opts.Warehouse,
		"ROLE":              opts.Role,
		"SCHEMA":            opts.Schema,
		"PRIV_KEY_FILE":     opts.PrivateKeyFile,
		"AUTHENTICATOR":     opts.Authenticator,
		"PRIV_KEY_FILE_PWD": opts.PrivateKeyPassword,
		"TOKEN":             opts.Token,
	}
}

// Connect drives the connection through §4.F's DriverConnect path:
// allocate remote database and connection handles, apply each present
// option via the typed string setter, set PORT via the int setter if
// given, then call connection_init. On any failure the connection stays
// Disconnected and the error is returned for the caller to queue.
func (c *Connection) Connect(ctx context.Context, facade rpcclient.Facade, opts dsn.Options) error {
	if c.state == Connected {
		return errs.New(errs.ConnectionInit, "connection is already connected")
	}

	db, err := facade.DatabaseNew(ctx)
	if err != nil {
		return ToRemoteErr(err, errs.ConnectionInit)
	}
	conn, err := facade.ConnectionNew(ctx)
	if err != nil {
		return ToRemoteErr(err, errs.ConnectionInit)
	}

	values := optionValues(opts)
	for _, key := range optionOrder {
		v := values[key]
		if v == "" {
			continue
		}
		if err := facade.ConnectionSetOption(ctx, conn, key, rpcclient.StringOption(v)); err != nil {
			return ToRemoteErr(err, errs.ConnectionInit)
		}
	}
	if opts.HasPort {
		if err := facade.ConnectionSetOption(ctx, conn, "PORT", rpcclient.IntOption(int64(opts.Port))); err != nil {
			return ToRemoteErr(err, errs.ConnectionInit)
		}
	}

	if err := facade.DatabaseInit(ctx, db); err != nil {
		return ToRemoteErr(err, errs.ConnectionInit)
	}
	if err := facade.ConnectionInit(ctx, conn, db); err != nil {
		return ToRemoteErr(err, errs.ConnectionInit)
	}

	c.facade = facade
	c.db = db
	c.conn = conn
	c.state = Connected
	return nil
}

// Disconnect calls connection_release through the facade, per the §9
// decision, and returns the connection to Disconnected regardless of
// the remote outcome (the handle is still being freed locally).
func (c *Connection) Disconnect(ctx context.Context) error {
	if c.state != Connected {
		return errs.New(errs.Disconnected, "connection is not connected")
	}
	err := c.facade.ConnectionRelease(ctx, c.conn)
	c.state = Disconnected
	if err != nil {
		return ToRemoteErr(err, errs.ConnectionInit)
	}
	return nil
}

// ReleaseDatabase calls database_release through the facade, per the §9
// decision that SQLFreeHandle(Dbc) owns releasing the remote database
// handle (connection_release, by contrast, runs at SQLDisconnect). A
// connection that never completed Connect has no remote database handle
// to release and this is a no-op.
func (c *Connection) ReleaseDatabase(ctx context.Context) error {
	if c.facade == nil {
		return nil
	}
	if err := c.facade.DatabaseRelease(ctx, c.db); err != nil {
		return ToRemoteErr(err, errs.ConnectionInit)
	}
	return nil
}

// ToRemoteErr converts a *rpcclient.RemoteException into the core's
// tagged error, or wraps any other transport-level error under fallback,
// the Kind the caller's own operation maps to (e.g. PrepareStatement for
// a plain dial error during statement_prepare). Exported so other
// packages driving the same facade, such as internal/handles, can decode
// errors the same way instead of wrapping blind.
func ToRemoteErr(err error, fallback errs.Kind) error {
	if re, ok := err.(*rpcclient.RemoteException); ok {
		return re.ToError()
	}
	return errs.Wrap(fallback, err, "rpc call failed")
}
