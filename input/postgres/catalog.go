package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/pganalyze/pgbloat/bloat"
	"github.com/pganalyze/pgbloat/relfile"
	"github.com/pganalyze/pgbloat/state"
	"github.com/pganalyze/pgbloat/util"
)

// Catalog - Resolves tables through the system catalogs of a live server and
// opens their relation files below the data directory
type Catalog struct {
	db            *sql.DB
	systemType    string
	dataDirectory string
	logger        *util.Logger
}

// NewCatalog - dataDirectory may be empty, in which case the server's
// data_directory setting is used
func NewCatalog(db *sql.DB, systemType string, dataDirectory string, logger *util.Logger) *Catalog {
	return &Catalog{db: db, systemType: systemType, dataDirectory: dataDirectory, logger: logger}
}

func (c *Catalog) CheckPrivilege(ctx context.Context) error {
	if !ConnectedAsSuperUser(ctx, c.db, c.systemType) {
		return state.ErrInsufficientPrivilege
	}

	return CheckBlockSize(ctx, c.db)
}

func (c *Catalog) OpenTable(ctx context.Context, schemaName string, relationName string) (*bloat.Table, error) {
	relation, err := GetRelation(ctx, c.db, schemaName, relationName)
	if err != nil {
		return nil, err
	}
	if !relation.FilePath.Valid {
		return nil, fmt.Errorf("table %s has no storage", relation.QualifiedName())
	}

	dataDirectory, err := c.getDataDirectory(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.PrintVerbose("Opening %s at %s (%d bytes, %d indexes)", relation.QualifiedName(), relation.FilePath.String, relation.SizeBytes, len(relation.Indices))

	heap, err := relfile.Open(relation.QualifiedName(), RelationPath(dataDirectory, relation.FilePath.String))
	if err != nil {
		return nil, errors.Wrapf(err, "could not open table %s", relation.QualifiedName())
	}

	table := &bloat.Table{Heap: heap}
	for _, index := range relation.Indices {
		if index.IsReady && !index.IsValid {
			c.logger.PrintWarning("Index %s.%s is invalid, its entries are still counted", relation.SchemaName, index.Name)
		}
		table.Indexes = append(table.Indexes, indexSource(dataDirectory, relation.SchemaName, index))
	}

	return table, nil
}

func (c *Catalog) getDataDirectory(ctx context.Context) (string, error) {
	if c.dataDirectory != "" {
		return c.dataDirectory, nil
	}

	dataDirectory, err := GetDataDirectory(ctx, c.db)
	if err != nil {
		return "", errors.Wrap(err, "could not determine data directory")
	}
	c.dataDirectory = dataDirectory

	return dataDirectory, nil
}

func indexSource(dataDirectory string, schemaName string, index state.PostgresIndex) bloat.IndexSource {
	name := schemaName + "." + index.Name
	return bloat.IndexSource{
		Name:         name,
		AccessMethod: index.AccessMethod,
		IsReady:      index.IsReady,
		Open: func() (relfile.Relation, error) {
			if !index.FilePath.Valid {
				return nil, fmt.Errorf("index %s has no storage", name)
			}
			f, err := relfile.Open(name, RelationPath(dataDirectory, index.FilePath.String))
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

// RelationPath - Location of a relation file given the path reported by
// pg_relation_filepath, which is relative to the data directory
func RelationPath(dataDirectory string, filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return filepath.Join(dataDirectory, filePath)
}
