// Package dialect holds the dialect-agnostic server descriptor type and
// the process-wide registry of supported dialect keys. It has no
// knowledge of how any dialect actually connects or queries — that's the
// adapter package's job — it only knows the shape of a server
// descriptor and which dialect keys exist.
package dialect

// Key identifies one of the supported database dialects.
type Key string

const (
	MySQL      Key = "mysql"
	MariaDB    Key = "mariadb"
	PostgreSQL Key = "postgresql"
	Redshift   Key = "redshift"
	SQLServer  Key = "sqlserver"
	SQLite     Key = "sqlite"
	Cassandra  Key = "cassandra"
)

// Client is one entry of the CLIENTS table: everything the core needs to
// know about a dialect that isn't adapter implementation detail.
type Client struct {
	Key             Key
	Name            string
	DefaultDatabase string
	// DisabledFeatures suppresses schema fields of the shape
	// "server:<field>" from validation for this dialect (e.g. SQLite has
	// no server:host field since it's file-based).
	DisabledFeatures []string
}

// CLIENTS is the process-wide, read-only table of supported dialects. It
// is a package-level singleton per the spec's "global mutable state" note:
// initialized once here, never reassigned.
var CLIENTS = map[Key]Client{
	MySQL: {
		Key:             MySQL,
		Name:            "MySQL",
		DefaultDatabase: "",
	},
	MariaDB: {
		Key:             MariaDB,
		Name:            "MariaDB",
		DefaultDatabase: "",
	},
	PostgreSQL: {
		Key:             PostgreSQL,
		Name:            "PostgreSQL",
		DefaultDatabase: "postgres",
	},
	Redshift: {
		Key:              Redshift,
		Name:             "Amazon Redshift",
		DefaultDatabase:  "",
		DisabledFeatures: []string{"server:socketPath"},
	},
	SQLServer: {
		Key:             SQLServer,
		Name:            "Microsoft SQL Server",
		DefaultDatabase: "master",
	},
	SQLite: {
		Key:              SQLite,
		Name:             "SQLite",
		DefaultDatabase:  "",
		DisabledFeatures: []string{"server:host", "server:port", "server:user", "server:password", "server:ssl", "server:ssh"},
	},
	Cassandra: {
		Key:              Cassandra,
		Name:             "Apache Cassandra",
		DefaultDatabase:  "",
		DisabledFeatures: []string{"server:socketPath"},
	},
}

// IsSupported reports whether key names a registered dialect.
func IsSupported(key Key) bool {
	_, ok := CLIENTS[key]
	return ok
}

// FeatureDisabled reports whether the given dialect suppresses the named
// "server:<field>" schema field.
func FeatureDisabled(key Key, field string) bool {
	c, ok := CLIENTS[key]
	if !ok {
		return false
	}
	for _, f := range c.DisabledFeatures {
		if f == field {
			return true
		}
	}
	return false
}

// SSHDescriptor configures an SSH tunnel used to reach a server.
type SSHDescriptor struct {
	Host       string
	Port       int
	User       string
	Password   string
	PrivateKey string
	Passphrase bool
}

// Descriptor is a persisted server connection definition. Exactly one of
// (Host and Port) or SocketPath is set; never both, never neither — see
// Validate.
type Descriptor struct {
	ID         string
	Name       string
	Client     Key
	Host       string
	Port       int
	SocketPath string
	Database   string
	User       string
	Password   string
	SSL        bool
	SSH        *SSHDescriptor
	// Encrypted marks Password and SSH.Password as ciphertext under the
	// active vault key rather than plaintext.
	Encrypted bool
}

// UsesSocket reports whether this descriptor addresses its server via a
// filesystem socket rather than a host/port pair.
func (d Descriptor) UsesSocket() bool {
	return d.SocketPath != ""
}

// Clone returns a deep copy of d, so callers can mutate a copy (e.g. to
// decrypt secrets) without affecting the original.
func (d Descriptor) Clone() Descriptor {
	clone := d
	if d.SSH != nil {
		sshCopy := *d.SSH
		clone.SSH = &sshCopy
	}
	return clone
}
