package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/lodeworks/strata/kgvec"
)

const mergeFactsQuery = `
UNWIND $rows AS row
MERGE (m:Material {name: row.subject_id})
MERGE (c:Country {name: row.object_id})
MERGE (m)-[r:INVOLVES_COUNTRY]->(c)
SET r.stage = row.stage
`

// publishNeo4j MERGEs facts into a live neo4j instance in batches. Missing
// credentials mean the sink is skipped; connection and query errors fail
// the run.
func publishNeo4j(ctx context.Context, facts []kgvec.Fact, cfg Neo4jConfig, log *slog.Logger) (bool, error) {
	if !cfg.hasCredentials() {
		log.Info("neo4j publish skipped: credentials not configured")
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return false, fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	session := driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: cfg.Database})
	defer session.Close(ctx)

	rows := make([]map[string]any, 0, cfg.BatchSize)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return tx.Run(ctx, mergeFactsQuery, map[string]any{"rows": rows})
		})
		if err != nil {
			return fmt.Errorf("neo4j merge batch of %d: %w", len(rows), err)
		}
		rows = rows[:0]
		return nil
	}

	for _, fact := range facts {
		stage := ""
		if s, ok := fact.Properties["stage"].(string); ok {
			stage = s
		}
		rows = append(rows, map[string]any{
			"subject_id": fact.SubjectID,
			"object_id":  fact.ObjectID,
			"stage":      stage,
		})
		if len(rows) >= cfg.BatchSize {
			if err := flush(); err != nil {
				return false, err
			}
		}
	}
	if err := flush(); err != nil {
		return false, err
	}

	log.Info("neo4j publish complete", "facts", len(facts), "database", cfg.Database)
	return true, nil
}
