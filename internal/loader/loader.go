// Package loader bulk-loads feature collections into PostGIS.
package loader

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2geojson-go/internal/config"
	"github.com/wegman-software/osm2geojson-go/internal/feature"
	"github.com/wegman-software/osm2geojson-go/internal/logger"
	"github.com/wegman-software/osm2geojson-go/internal/wkb"
)

// Stats holds loader statistics.
type Stats struct {
	RowsLoaded int64
}

// Loader loads feature collections into PostgreSQL.
type Loader struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	dropExisting  bool
	createIndexes bool
}

// NewLoader connects to PostgreSQL.
func NewLoader(cfg *config.Config, dropExisting, createIndexes bool) (*Loader, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Workers)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &Loader{
		cfg:           cfg,
		pool:          pool,
		dropExisting:  dropExisting,
		createIndexes: createIndexes,
	}, nil
}

// Close releases the connection pool.
func (l *Loader) Close() error {
	l.pool.Close()
	return nil
}

func (l *Loader) tableName() string {
	return fmt.Sprintf("%s.%s", l.cfg.DBSchema, l.cfg.DBTable)
}

// Run creates the target table and bulk-loads the collection.
func (l *Loader) Run(ctx context.Context, features feature.Collection) (*Stats, error) {
	log := logger.Get()
	stats := &Stats{}

	if _, err := l.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		return nil, fmt.Errorf("failed to create PostGIS extension: %w", err)
	}
	if l.cfg.DBSchema != "public" {
		if _, err := l.pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", l.cfg.DBSchema)); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	table := l.tableName()
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if l.dropExisting {
		if _, err := conn.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)); err != nil {
			return nil, fmt.Errorf("failed to drop table: %w", err)
		}
	}

	createSQL := fmt.Sprintf(`
		CREATE UNLOGGED TABLE IF NOT EXISTS %s (
			id BIGINT GENERATED ALWAYS AS IDENTITY,
			properties JSONB,
			geom GEOMETRY(Geometry, 4326)
		)
	`, table)
	if _, err := conn.Exec(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	log.Info("loading features", zap.String("table", table), zap.Int("features", len(features)))
	count, err := l.copyFeatures(ctx, conn.Conn(), table, features)
	if err != nil {
		return nil, err
	}
	stats.RowsLoaded = count

	// Back to a logged table once the bulk load is through.
	if _, err := conn.Exec(ctx, fmt.Sprintf("ALTER TABLE %s SET LOGGED", table)); err != nil {
		log.Debug("failed to set table logged", zap.Error(err))
	}

	if l.createIndexes {
		if err := l.createTableIndexes(ctx, conn.Conn()); err != nil {
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	log.Info("load complete", zap.Int64("rows", count))
	return stats, nil
}

// copyFeatures streams the collection through COPY into a temp table and
// converts the EWKB payloads server-side.
func (l *Loader) copyFeatures(ctx context.Context, conn *pgx.Conn, table string, features feature.Collection) (int64, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const tempTable = "feature_load_tmp"
	tempSQL := fmt.Sprintf(`
		DROP TABLE IF EXISTS %s;
		CREATE TEMP TABLE %s (
			properties TEXT,
			geom_wkb BYTEA
		) ON COMMIT DROP
	`, tempTable, tempTable)
	if _, err := tx.Exec(ctx, tempSQL); err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}

	rows := newFeatureRows(features)
	count, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{tempTable},
		[]string{"properties", "geom_wkb"},
		rows,
	)
	if err != nil {
		return 0, fmt.Errorf("COPY failed: %w", err)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO %s (properties, geom)
		SELECT properties::jsonb, ST_GeomFromEWKB(geom_wkb)
		FROM %s
		WHERE geom_wkb IS NOT NULL
	`, table, tempTable)
	if _, err := tx.Exec(ctx, insertSQL); err != nil {
		return 0, fmt.Errorf("failed to insert from temp table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return count, nil
}

func (l *Loader) createTableIndexes(ctx context.Context, conn *pgx.Conn) error {
	table := l.tableName()
	gistIdx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_geom_idx ON %s USING GIST (geom)",
		l.cfg.DBTable, table)
	if _, err := conn.Exec(ctx, gistIdx); err != nil {
		return err
	}
	propsIdx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_properties_idx ON %s USING GIN (properties)",
		l.cfg.DBTable, table)
	if _, err := conn.Exec(ctx, propsIdx); err != nil {
		return err
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("ANALYZE %s", table)); err != nil {
		return err
	}
	return nil
}

// featureRows implements pgx.CopyFromSource directly over a collection,
// encoding each feature on demand. The COPY pulls rows from it, so an
// aborted COPY leaves nothing behind that could block.
type featureRows struct {
	features feature.Collection
	encoder  *wkb.Encoder
	current  []interface{}
	err      error
}

func newFeatureRows(features feature.Collection) *featureRows {
	return &featureRows{features: features, encoder: wkb.NewEncoder(1024)}
}

func (r *featureRows) Next() bool {
	for len(r.features) > 0 {
		f := r.features[0]
		r.features = r.features[1:]
		if f.Geometry == nil {
			continue
		}
		ewkb, err := r.encoder.Encode(f.Geometry)
		if err != nil {
			r.err = fmt.Errorf("failed to encode feature: %w", err)
			return false
		}
		props, err := json.Marshal(f.Properties)
		if err != nil {
			r.err = fmt.Errorf("failed to encode properties: %w", err)
			return false
		}
		r.current = []interface{}{string(props), append([]byte(nil), ewkb...)}
		return true
	}
	return false
}

func (r *featureRows) Values() ([]interface{}, error) {
	return r.current, nil
}

func (r *featureRows) Err() error {
	return r.err
}
