// Package regionarchivist records the region event stream into Neo4j as a
// crossing history graph: which tokens entered and exited which regions,
// when, in which scene.
package regionarchivist

import (
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jClient handles communication with Neo4j.
type Neo4jClient struct {
	driver neo4j.Driver
}

// NewNeo4jClient creates a new Neo4jClient.
func NewNeo4jClient() (*Neo4jClient, error) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		uri = "neo4j://neo4j:7687"
	}
	user := os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	password := os.Getenv("NEO4J_PASSWORD")
	if password == "" {
		password = "password"
	}

	driver, err := neo4j.NewDriver(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver creation failed: %w", err)
	}

	if err := driver.VerifyConnectivity(); err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("neo4j connectivity test failed: %w", err)
	}

	return &Neo4jClient{driver: driver}, nil
}

// RecordCrossing stores one enter/exit transition as a relationship from the
// token node to the region node, with the event identity on the edge so
// replays merge instead of duplicating.
func (n *Neo4jClient) RecordCrossing(eventID, relType, sceneID, regionID, tokenID, timestamp string) error {
	session := n.driver.NewSession(neo4j.SessionConfig{DatabaseName: "neo4j"})
	defer session.Close()

	query := fmt.Sprintf(`
MERGE (t:Token {id: $token_id, scene_id: $scene_id})
MERGE (r:Region {id: $region_id, scene_id: $scene_id})
MERGE (t)-[c:%s {event_id: $event_id}]->(r)
SET c.timestamp = $timestamp
RETURN c
`, relType)

	_, err := session.Run(query, map[string]any{
		"event_id":  eventID,
		"scene_id":  sceneID,
		"region_id": regionID,
		"token_id":  tokenID,
		"timestamp": timestamp,
	})
	return err
}

// RecordLifecycle stores a non-crossing region event (boundary changes,
// behavior toggles, round/turn progress) as an event node attached to the
// region.
func (n *Neo4jClient) RecordLifecycle(eventID, name, sceneID, regionID, timestamp string, data map[string]interface{}) error {
	session := n.driver.NewSession(neo4j.SessionConfig{DatabaseName: "neo4j"})
	defer session.Close()

	query := `
MERGE (e:RegionEvent {id: $event_id})
SET e.name = $name, e.timestamp = $timestamp
SET e += $data
MERGE (r:Region {id: $region_id, scene_id: $scene_id})
MERGE (e)-[:OCCURRED_IN]->(r)
RETURN e
`

	_, err := session.Run(query, map[string]any{
		"event_id":  eventID,
		"name":      name,
		"scene_id":  sceneID,
		"region_id": regionID,
		"timestamp": timestamp,
		"data":      data,
	})
	return err
}

// CrossingHistory returns the recorded crossings of a token, most recent
// first.
func (n *Neo4jClient) CrossingHistory(sceneID, tokenID string, limit int) ([]map[string]interface{}, error) {
	session := n.driver.NewSession(neo4j.SessionConfig{DatabaseName: "neo4j"})
	defer session.Close()

	result, err := session.ReadTransaction(func(tx neo4j.Transaction) (any, error) {
		query := `
MATCH (t:Token {id: $token_id, scene_id: $scene_id})-[c]->(r:Region)
RETURN r.id AS region, type(c) AS kind, c.timestamp AS timestamp
ORDER BY c.timestamp DESC
LIMIT $limit
`
		records, err := tx.Run(query, map[string]any{
			"token_id": tokenID,
			"scene_id": sceneID,
			"limit":    limit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to execute query: %w", err)
		}

		var crossings []map[string]interface{}
		for records.Next() {
			record := records.Record()
			entry := make(map[string]interface{})
			for _, key := range []string{"region", "kind", "timestamp"} {
				if val, ok := record.Get(key); ok {
					entry[key] = val
				}
			}
			crossings = append(crossings, entry)
		}

		return crossings, records.Err()
	})
	if err != nil {
		return nil, err
	}

	crossings, ok := result.([]map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("failed to convert result to crossings slice")
	}

	return crossings, nil
}

// Close closes the Neo4j driver.
func (n *Neo4jClient) Close() {
	_ = n.driver.Close()
}
