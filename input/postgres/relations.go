package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pganalyze/pgbloat/state"
)

// An empty schema name resolves the relation through the search_path, the
// way an unqualified name would in a query
const relationSQL string = `
SELECT c.oid,
			 n.nspname AS schema_name,
			 c.relname AS relation_name,
			 c.relkind AS relation_type,
			 c.relpersistence AS persistence_type,
			 pg_catalog.pg_relation_filepath(c.oid) AS file_path,
			 pg_catalog.pg_relation_size(c.oid) AS size_bytes,
			 c.relpersistence <> 't' OR n.oid = pg_catalog.pg_my_temp_schema() AS is_local
	FROM pg_catalog.pg_class c
	JOIN pg_catalog.pg_namespace n ON (n.oid = c.relnamespace)
 WHERE c.relname = $2
			 AND (n.nspname = $1 OR ($1 = '' AND pg_catalog.pg_table_is_visible(c.oid)))
 ORDER BY pg_catalog.pg_table_is_visible(c.oid) DESC
 LIMIT 1`

const indicesSQL string = `
SELECT i.indexrelid AS index_oid,
			 c.relname AS name,
			 am.amname AS access_method,
			 i.indisready AS is_ready,
			 i.indisvalid AS is_valid,
			 pg_catalog.pg_relation_filepath(i.indexrelid) AS file_path
	FROM pg_catalog.pg_index i
	JOIN pg_catalog.pg_class c ON (c.oid = i.indexrelid)
	JOIN pg_catalog.pg_am am ON (am.oid = c.relam)
 WHERE i.indrelid = $1
 ORDER BY i.indexrelid`

// GetRelation - Looks up a table and its indexes by name. Temporary tables
// of other sessions are reported as not found, since their data lives in
// that session's local buffers.
func GetRelation(ctx context.Context, db *sql.DB, schemaName string, relationName string) (state.PostgresRelation, error) {
	var relation state.PostgresRelation
	var isLocal bool

	err := db.QueryRowContext(ctx, QueryMarkerSQL+relationSQL, schemaName, relationName).Scan(
		&relation.Oid, &relation.SchemaName, &relation.RelationName, &relation.RelationType,
		&relation.PersistenceType, &relation.FilePath, &relation.SizeBytes, &isLocal)
	if err == sql.ErrNoRows || (err == nil && !isLocal) {
		return relation, &state.RelationNotFoundError{SchemaName: schemaName, RelationName: relationName}
	}
	if err != nil {
		return relation, fmt.Errorf("Relation/Query: %s", err)
	}

	if !relation.IsTable() {
		return relation, &state.NotATableError{Name: relation.QualifiedName(), RelationType: relation.RelationType}
	}

	relation.Indices, err = GetIndices(ctx, db, relation.Oid)
	if err != nil {
		return relation, err
	}

	return relation, nil
}

// GetIndices - Lists the indexes of a relation in index OID order
func GetIndices(ctx context.Context, db *sql.DB, relationOid state.Oid) ([]state.PostgresIndex, error) {
	stmt, err := db.PrepareContext(ctx, QueryMarkerSQL+indicesSQL)
	if err != nil {
		err = fmt.Errorf("Indices/Prepare: %s", err)
		return nil, err
	}

	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, relationOid)
	if err != nil {
		err = fmt.Errorf("Indices/Query: %s", err)
		return nil, err
	}

	defer rows.Close()

	var indices []state.PostgresIndex

	for rows.Next() {
		var row state.PostgresIndex

		err := rows.Scan(&row.IndexOid, &row.Name, &row.AccessMethod, &row.IsReady, &row.IsValid, &row.FilePath)
		if err != nil {
			err = fmt.Errorf("Indices/Scan: %s", err)
			return nil, err
		}

		indices = append(indices, row)
	}

	if err = rows.Err(); err != nil {
		err = fmt.Errorf("Indices/Rows: %s", err)
		return nil, err
	}

	return indices, nil
}
