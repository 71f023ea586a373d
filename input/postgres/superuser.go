package postgres

import (
	"context"
	"database/sql"
)

const connectedAsSuperUserSQL string = `SELECT current_setting('is_superuser') = 'on'`

// Managed services don't hand out superuser, but members of these roles get
// to read every table
var managedSuperuserRoles = map[string]string{
	"amazon_rds":      "rds_superuser",
	"azure_database":  "azure_pg_admin",
	"google_cloudsql": "cloudsqlsuperuser",
}

const connectedAsRoleMemberSQL string = `
SELECT pg_catalog.pg_has_role(oid, 'MEMBER') FROM pg_catalog.pg_roles WHERE rolname = $1
`

// ConnectedAsSuperUser - Checks whether the connection has the privileges
// needed to read all of a table's pages
func ConnectedAsSuperUser(ctx context.Context, db *sql.DB, systemType string) bool {
	var enabled bool

	if role, ok := managedSuperuserRoles[systemType]; ok {
		err := db.QueryRowContext(ctx, QueryMarkerSQL+connectedAsRoleMemberSQL, role).Scan(&enabled)
		if err != nil {
			return false
		}
		return enabled
	}

	err := db.QueryRowContext(ctx, QueryMarkerSQL+connectedAsSuperUserSQL).Scan(&enabled)
	if err != nil {
		return false
	}

	return enabled
}
