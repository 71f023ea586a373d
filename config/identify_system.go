package config

// Figure out if we're self-hosted or on a managed service, which decides how
// superuser privileges are recognized
func identifySystemType(config ServerConfig) string {
	// Allow overrides from config or env variables
	if config.SystemType != "" {
		return config.SystemType
	}

	if config.AwsDbInstanceID != "" {
		return "amazon_rds"
	} else if config.AzureDbServerName != "" {
		return "azure_database"
	} else if config.GcpProjectID != "" && config.GcpCloudSQLInstanceID != "" {
		return "google_cloudsql"
	}
	return "self_hosted"
}
