package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type Config struct {
	Servers []ServerConfig
}

// ServerConfig -
//   Contains the information how to connect to a Postgres instance,
//   and where its relation files can be read from
type ServerConfig struct {
	DbURL         string `ini:"db_url"`
	DbName        string `ini:"db_name"`
	DbUsername    string `ini:"db_username"`
	DbPassword    string `ini:"db_password"`
	DbHost        string `ini:"db_host"`
	DbPort        int    `ini:"db_port"`
	DbSslMode     string `ini:"db_sslmode"`
	DbSslRootCert string `ini:"db_sslrootcert"`

	// We have to do some tricks to support sslmode=prefer, namely we have to
	// first try an SSL connection (= require), and if that fails change the
	// sslmode to none
	DbSslModePreferFailed bool

	AwsDbInstanceID       string `ini:"aws_db_instance_id"`
	AzureDbServerName     string `ini:"azure_db_server_name"`
	GcpProjectID          string `ini:"gcp_project_id"`
	GcpCloudSQLInstanceID string `ini:"gcp_cloudsql_instance_id"`

	SectionName string
	SystemType  string `ini:"api_system_type"`

	// Location of the Postgres data directory as seen from this machine. When
	// empty, the server's data_directory setting is used, which only works
	// when running on the database server itself.
	DataDirectory string `ini:"db_data_directory"`

	// Number of dead tuple identifiers collected before the table's indexes
	// are scanned for entries pointing at them. Larger batches mean fewer
	// passes over the indexes, at the cost of 6 bytes of memory per entry.
	//
	// Defaults to 1024
	BloatBatchSize int `ini:"bloat_batch_size"`

	// Statement timeout for the catalog queries, defaults to 30 seconds
	StatementTimeoutMs int `ini:"statement_timeout_ms"`

	ApplicationName string `ini:"application_name"`
}

// GetPqOpenString - Gets the database configuration as a string that can be passed to lib/pq for connecting
func (config ServerConfig) GetPqOpenString(dbNameOverride string) string {
	var dbUsername, dbPassword, dbName, dbHost, dbSslMode, dbSslRootCert string
	var dbPort int

	if u, err := url.Parse(config.DbURL); config.DbURL != "" && err == nil {
		if u.User != nil {
			dbUsername = u.User.Username()
			dbPassword, _ = u.User.Password()
		}

		if u.Path != "" {
			dbName = u.Path[1:len(u.Path)]
		}

		hostSplits := strings.SplitN(u.Host, ":", 2)
		dbHost = hostSplits[0]
		if len(hostSplits) > 1 {
			dbPort, _ = strconv.Atoi(hostSplits[1])
		}

		for key, values := range u.Query() {
			switch key {
			case "sslmode":
				dbSslMode = values[0]
			case "sslrootcert":
				dbSslRootCert = values[0]
			}
		}
	}

	dbinfo := []string{}

	if config.DbUsername != "" {
		dbUsername = config.DbUsername
	}
	if config.DbPassword != "" {
		dbPassword = config.DbPassword
	}
	if dbNameOverride != "" {
		dbName = dbNameOverride
	} else if config.DbName != "" {
		dbName = config.DbName
	}
	if config.DbHost != "" {
		dbHost = config.DbHost
	}
	if config.DbPort != 0 {
		dbPort = config.DbPort
	}
	if config.DbSslMode != "" {
		dbSslMode = config.DbSslMode
	}
	if config.DbSslRootCert != "" {
		dbSslRootCert = config.DbSslRootCert
	}

	// Defaults if nothing is set
	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == 0 {
		dbPort = 5432
	}
	if dbSslMode == "" {
		dbSslMode = "prefer"
	}

	// Handle SSL mode prefer
	if dbSslMode == "prefer" {
		if config.DbSslModePreferFailed {
			dbSslMode = "disable"
		} else {
			dbSslMode = "require"
		}
	}

	// Generate the actual string
	if dbUsername != "" {
		dbinfo = append(dbinfo, fmt.Sprintf("user='%s'", escapeConnValue(dbUsername)))
	}
	if dbPassword != "" {
		dbinfo = append(dbinfo, fmt.Sprintf("password='%s'", escapeConnValue(dbPassword)))
	}
	if dbName != "" {
		dbinfo = append(dbinfo, fmt.Sprintf("dbname='%s'", escapeConnValue(dbName)))
	}
	dbinfo = append(dbinfo, fmt.Sprintf("host='%s'", escapeConnValue(dbHost)))
	dbinfo = append(dbinfo, fmt.Sprintf("port=%d", dbPort))
	dbinfo = append(dbinfo, fmt.Sprintf("sslmode=%s", dbSslMode))
	if dbSslRootCert != "" {
		dbinfo = append(dbinfo, fmt.Sprintf("sslrootcert='%s'", escapeConnValue(dbSslRootCert)))
	}
	if config.ApplicationName != "" {
		dbinfo = append(dbinfo, fmt.Sprintf("application_name='%s'", escapeConnValue(config.ApplicationName)))
	}
	dbinfo = append(dbinfo, "connect_timeout=10")

	return strings.Join(dbinfo, " ")
}

func escapeConnValue(value string) string {
	return strings.Replace(value, "'", "\\'", -1)
}

// GetDbHost - Gets the database hostname from the given configuration
func (config ServerConfig) GetDbHost() string {
	if u, err := url.Parse(config.DbURL); config.DbURL != "" && err == nil {
		parts := strings.Split(u.Host, ":")
		return parts[0]
	}

	return config.DbHost
}

// GetDbName - Gets the database name from the given configuration
func (config ServerConfig) GetDbName() string {
	if u, err := url.Parse(config.DbURL); config.DbURL != "" && err == nil {
		if len(u.Path) > 0 {
			return u.Path[1:len(u.Path)]
		}
	}

	return config.DbName
}

// GetDbURLRedacted - Gets the database URL with the password removed, for log output
func (config ServerConfig) GetDbURLRedacted() string {
	if config.DbURL == "" {
		return ""
	}
	u, err := url.Parse(config.DbURL)
	if err != nil {
		return "<unparsable>"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}

// Server - Finds the server config for the named section, or the first one
// when no section is given
func (conf Config) Server(sectionName string) (ServerConfig, error) {
	if len(conf.Servers) == 0 {
		return ServerConfig{}, fmt.Errorf("No servers configured")
	}
	if sectionName == "" {
		return conf.Servers[0], nil
	}
	for _, server := range conf.Servers {
		if server.SectionName == sectionName {
			return server, nil
		}
	}
	return ServerConfig{}, fmt.Errorf("No config section named %s", sectionName)
}
