package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/cuemby/ledgersync/pkg/log"
)

// indexStatements are issued once at startup, idempotently, to keep the
// MERGE/MATCH patterns the Projection Function emits off full scans.
var indexStatements = []string{
	"CREATE INDEX created_contract_id IF NOT EXISTS FOR (c:Created) ON (c.contract_id)",
	"CREATE INDEX created_offset_node IF NOT EXISTS FOR (c:Created) ON (c.offset, c.node_id)",
	"CREATE INDEX exercised_offset_node IF NOT EXISTS FOR (e:Exercised) ON (e.offset, e.node_id)",
	"CREATE INDEX transaction_offset IF NOT EXISTS FOR (t:Transaction) ON (t.offset)",
	"CREATE INDEX created_template_name IF NOT EXISTS FOR (c:Created) ON (c.template_name)",
	"CREATE INDEX exercised_choice_name IF NOT EXISTS FOR (e:Exercised) ON (e.choice_name)",
	"CREATE INDEX party_id IF NOT EXISTS FOR (p:Party) ON (p.party_id)",
	"CREATE INDEX created_from_acs IF NOT EXISTS FOR (c:Created) ON (c.from_acs)",
}

// Neo4jStore is the neo4j-go-driver-backed GraphStore implementation.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore dials the graph database. database may be empty, in which
// case the driver's default database is used.
func NewNeo4jStore(ctx context.Context, uri, username, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Neo4jStore{driver: driver, database: database}, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Neo4jStore) EnsureIndexes(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range indexStatements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	log.WithComponent("graphstore").Info().Int("count", len(indexStatements)).Msg("indexes ensured")
	return nil
}

func (s *Neo4jStore) MaxOffset(ctx context.Context) (*int64, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (t:Transaction) RETURN max(t.offset) AS max_offset`, nil)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		raw, ok := record.Get("max_offset")
		if !ok || raw == nil {
			return nil, nil
		}
		offset, ok := raw.(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected max_offset type %T", raw)
		}
		return offset, nil
	})
	if err != nil {
		return nil, fmt.Errorf("query max offset: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	offset := result.(int64)
	return &offset, nil
}

func (s *Neo4jStore) IsACSLoaded(ctx context.Context) (bool, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (c:Created {from_acs: true}) RETURN c LIMIT 1`, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		return len(records) > 0, nil
	})
	if err != nil {
		return false, fmt.Errorf("query acs loaded: %w", err)
	}
	return result.(bool), nil
}

// Clear deletes every node and relationship. It first tries APOC's batched
// periodic-iterate delete (safe against very large graphs), falling back to
// a plain detach-delete when APOC is not installed on the target database.
func (s *Neo4jStore) Clear(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, apocErr := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `
			CALL apoc.periodic.iterate(
				"MATCH (n) RETURN n",
				"DETACH DELETE n",
				{batchSize: 10000})`, nil)
		return nil, err
	})
	if apocErr == nil {
		return nil
	}
	log.WithComponent("graphstore").Warn().Err(apocErr).Msg("apoc clear unavailable, falling back to plain delete")

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `MATCH (n) DETACH DELETE n`, nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("clear graph: %w", err)
	}
	return nil
}

// CommitBatch executes every statement inside a single write transaction.
// A failure mid-batch rolls back the entire transaction, per the
// all-or-nothing batch commit invariant.
func (s *Neo4jStore) CommitBatch(ctx context.Context, stmts []Statement) error {
	if len(stmts) == 0 {
		return nil
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range stmts {
			if _, err := tx.Run(ctx, stmt.Cypher, stmt.Params); err != nil {
				return nil, fmt.Errorf("run statement: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
