package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-ini/ini"

	"github.com/pganalyze/pgbloat/util"
)

const DefaultConfigFile = "/etc/pgbloat.conf"

const DefaultApplicationName = "pgbloat"

func getDefaultConfig() *ServerConfig {
	config := &ServerConfig{
		SectionName:        "default",
		StatementTimeoutMs: 30000,
		ApplicationName:    DefaultApplicationName,
	}

	// The environment variables are an alternative to the config file, and
	// take effect as defaults for every section
	if dbURL := os.Getenv("DB_URL"); dbURL != "" {
		config.DbURL = dbURL
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		config.DbName = dbName
	}
	if dbUsername := os.Getenv("DB_USERNAME"); dbUsername != "" {
		config.DbUsername = dbUsername
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		config.DbPassword = dbPassword
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		config.DbHost = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		config.DbPort, _ = strconv.Atoi(dbPort)
	}
	if dbSslMode := os.Getenv("DB_SSLMODE"); dbSslMode != "" {
		config.DbSslMode = dbSslMode
	}
	if dbSslRootCert := os.Getenv("DB_SSLROOTCERT"); dbSslRootCert != "" {
		config.DbSslRootCert = dbSslRootCert
	}
	if systemType := os.Getenv("PGA_API_SYSTEM_TYPE"); systemType != "" {
		config.SystemType = systemType
	}
	if awsInstanceID := os.Getenv("AWS_INSTANCE_ID"); awsInstanceID != "" {
		config.AwsDbInstanceID = awsInstanceID
	}
	if azureDbServerName := os.Getenv("AZURE_DB_SERVER_NAME"); azureDbServerName != "" {
		config.AzureDbServerName = azureDbServerName
	}
	if gcpProjectID := os.Getenv("GCP_PROJECT_ID"); gcpProjectID != "" {
		config.GcpProjectID = gcpProjectID
	}
	if gcpCloudSQLInstanceID := os.Getenv("GCP_CLOUDSQL_INSTANCE_ID"); gcpCloudSQLInstanceID != "" {
		config.GcpCloudSQLInstanceID = gcpCloudSQLInstanceID
	}
	if dataDirectory := os.Getenv("PGDATA"); dataDirectory != "" {
		config.DataDirectory = dataDirectory
	}
	if batchSize := os.Getenv("BLOAT_BATCH_SIZE"); batchSize != "" {
		config.BloatBatchSize, _ = strconv.Atoi(batchSize)
	}
	if statementTimeoutMs := os.Getenv("STATEMENT_TIMEOUT_MS"); statementTimeoutMs != "" {
		config.StatementTimeoutMs, _ = strconv.Atoi(statementTimeoutMs)
	}

	return config
}

func autoDetectFromHostname(config *ServerConfig) *ServerConfig {
	host := config.GetDbHost()
	if strings.HasSuffix(host, ".rds.amazonaws.com") {
		parts := strings.SplitN(host, ".", 4)
		if len(parts) == 4 && parts[3] == "rds.amazonaws.com" { // Safety check for any escaping issues
			if config.AwsDbInstanceID == "" {
				config.AwsDbInstanceID = parts[0]
			}
		}
	} else if strings.HasSuffix(host, ".postgres.database.azure.com") {
		parts := strings.SplitN(host, ".", 2)
		if len(parts) == 2 && parts[1] == "postgres.database.azure.com" { // Safety check for any escaping issues
			if config.AzureDbServerName == "" {
				config.AzureDbServerName = parts[0]
			}
		}
	}
	return config
}

func finalizeConfig(config *ServerConfig) *ServerConfig {
	config = autoDetectFromHostname(config)
	config.SystemType = identifySystemType(*config)
	return config
}

// Read - Reads the configuration from the specified filename, or fall back to the environment
func Read(logger *util.Logger, filename string) (Config, error) {
	var conf Config
	var err error

	if _, err = os.Stat(filename); err == nil {
		configFile, err := ini.Load(filename)
		if err != nil {
			return conf, err
		}

		defaultConfig := getDefaultConfig()

		err = configFile.Section("pgbloat").MapTo(defaultConfig)
		if err != nil {
			logger.PrintVerbose("Failed to map pgbloat section: %s", err)
		}

		for _, section := range configFile.Sections() {
			if section.Name() == "pgbloat" {
				continue
			}
			if section.Name() == ini.DEFAULT_SECTION && len(section.Keys()) == 0 {
				continue
			}

			config := &ServerConfig{}
			*config = *defaultConfig

			err = section.MapTo(config)
			if err != nil {
				return conf, err
			}

			config.SectionName = section.Name()
			config = finalizeConfig(config)

			if config.GetDbName() == "" && config.GetDbHost() == "" {
				logger.PrintVerbose("Skipping config section %s, no database configured", config.SectionName)
				continue
			}
			conf.Servers = append(conf.Servers, *config)
		}

		if len(conf.Servers) == 0 {
			return conf, fmt.Errorf("Configuration file is empty, please edit %s", filename)
		}
	} else {
		config := getDefaultConfig()
		if config.DbURL == "" && config.DbHost == "" && config.DbName == "" {
			return conf, fmt.Errorf("No configuration file found at %s, and no environment variables set", filename)
		}
		conf.Servers = append(conf.Servers, *finalizeConfig(config))
	}

	return conf, nil
}

// ForURL - Server configuration for a connection URL given on the command
// line, with the remaining settings taken from the environment
func ForURL(dbURL string) ServerConfig {
	config := getDefaultConfig()
	config.DbURL = dbURL
	return *finalizeConfig(config)
}
