package state

import "github.com/guregu/null"

// PostgresRelation - A heap relation as resolved from pg_class
type PostgresRelation struct {
	Oid             Oid
	SchemaName      string
	RelationName    string
	RelationType    string // r = table, m = materialized view, t = TOAST table
	PersistenceType string // p = permanent, u = unlogged, t = temporary
	FilePath        null.String
	SizeBytes       int64
	Indices         []PostgresIndex
}

// PostgresIndex - A secondary index on a relation, in index OID order
type PostgresIndex struct {
	IndexOid     Oid
	Name         string
	AccessMethod string
	IsReady      bool
	IsValid      bool
	FilePath     null.String
}

// QualifiedName - schema.relation as used in log output
func (r PostgresRelation) QualifiedName() string {
	return r.SchemaName + "." + r.RelationName
}

func (r PostgresRelation) IsTable() bool {
	return r.RelationType == "r" || r.RelationType == "m" || r.RelationType == "t"
}
