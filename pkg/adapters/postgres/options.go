package postgres

import (
	"strconv"

	"github.com/leapstack-labs/pgcatalog/pkg/adapter"
)

// Option names accepted by New.
const (
	OptHost           = "host"
	OptPort           = "port"
	OptDBName         = "dbname"
	OptUser           = "user"
	OptPassword       = "password"
	OptPassfile       = "passfile"
	OptRequireAuth    = "require_auth"
	OptChannelBinding = "channel_binding"
	OptConnectTimeout = "connect_timeout"
	OptSSLMode        = "sslmode"
	OptSSLCert        = "sslcert"
	OptSSLKey         = "sslkey"
)

// Options declares every connection option the adapter accepts, in the
// order the host should present them.
var Options = []adapter.Option{
	{
		Name: OptHost,
		Description: "Specifies the host name of the machine on which the server is running. " +
			"If the value begins with a slash, it is used as the directory for the Unix-domain socket.",
		Kind:       adapter.OptionText,
		ShortDecls: []string{"-h"},
		Default:    "localhost",
	},
	{
		Name: OptPort,
		Description: "Port number to connect to at the server host, or socket file name extension " +
			"for Unix-domain connections.",
		Kind:       adapter.OptionText,
		ShortDecls: []string{"-p"},
		Default:    "5432",
		Validator:  intValidator,
	},
	{
		Name:        OptDBName,
		Description: "The database name to connect to.",
		Kind:        adapter.OptionText,
		ShortDecls:  []string{"-d"},
		Default:     "postgres",
	},
	{
		Name:        OptUser,
		Description: "PostgreSQL user name to connect as.",
		Kind:        adapter.OptionText,
		ShortDecls:  []string{"-u", "--username", "-U"},
	},
	{
		Name:        OptPassword,
		Description: "Password to be used if the server demands password authentication.",
		Kind:        adapter.OptionText,
	},
	{
		Name: OptPassfile,
		Description: "Specifies the name of the file used to store passwords. Defaults to ~/.pgpass, " +
			`or %APPDATA%\postgresql\pgpass.conf on Windows. (No error is reported if this file does not exist.)`,
		Kind: adapter.OptionPath,
	},
	{
		Name: OptRequireAuth,
		Description: "Specifies the authentication method that the client requires from the server. " +
			"If the server does not use the required method to authenticate the client, or if the " +
			"authentication handshake is not fully completed by the server, the connection will fail.",
		Kind:    adapter.OptionSelect,
		Choices: []string{"password", "md5", "gss", "sspi", "scram-sha-256", "none"},
	},
	{
		Name: OptChannelBinding,
		Description: "This option controls the client's use of channel binding. A setting of require " +
			"means that the connection must employ channel binding, prefer means that the client will " +
			"choose channel binding if available, and disable prevents the use of channel binding.",
		Kind:    adapter.OptionSelect,
		Choices: []string{"require", "prefer", "disable"},
	},
	{
		Name:        OptConnectTimeout,
		Description: "Maximum time to wait while connecting, in seconds (write as an integer, e.g., 10).",
		Kind:        adapter.OptionText,
		Validator:   numberValidator,
	},
	{
		Name: OptSSLMode,
		Description: "Determines whether or with what priority a secure SSL TCP/IP connection will " +
			"be negotiated with the server.",
		Kind:    adapter.OptionSelect,
		Choices: []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"},
		Default: "prefer",
	},
	{
		Name: OptSSLCert,
		Description: "Specifies the file name of the client SSL certificate. " +
			"Ignored if an SSL connection is not made.",
		Kind:    adapter.OptionPath,
		Default: "~/.postgresql/postgresql.crt",
	},
	{
		Name: OptSSLKey,
		Description: "Specifies the location for the secret key used for the client certificate. " +
			"It can either specify a file name that will be used instead of the default " +
			"~/.postgresql/postgresql.key, or it can specify a key obtained from an external engine. " +
			"This parameter is ignored if an SSL connection is not made.",
		Kind: adapter.OptionText,
	},
}

// LookupOption returns the declaration for name.
func LookupOption(name string) (adapter.Option, bool) {
	for _, o := range Options {
		if o.Name == name {
			return o, true
		}
	}
	return adapter.Option{}, false
}

func intValidator(s string) (bool, string) {
	if _, err := strconv.Atoi(s); err != nil {
		return false, "Cannot convert " + s + " to an int!"
	}
	return true, ""
}

// numberValidator also accepts fractional seconds, which the pool timeout
// honours.
func numberValidator(s string) (bool, string) {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return false, "Cannot convert " + s + " to a number!"
	}
	return true, ""
}
