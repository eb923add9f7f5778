package cypher

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/siherrmann/graphrag/model"
)

func entityFromRecord(record *neo4j.Record) *model.Entity {
	return &model.Entity{
		ID:     stringValue(record, "id"),
		Name:   stringValue(record, "name"),
		Type:   stringValue(record, "type"),
		Degree: intValue(record, "degree"),
	}
}

func connectionFromRecord(record *neo4j.Record) (*model.RelationConnection, error) {
	relation := &model.Relation{
		ID:       stringValue(record, "id"),
		SourceID: stringValue(record, "sourceId"),
		TargetID: stringValue(record, "targetId"),
		Type:     stringValue(record, "relationType"),
	}
	if relation.SourceID == "" || relation.TargetID == "" {
		return nil, fmt.Errorf("relation %s has a missing endpoint", relation.ID)
	}

	properties := model.Properties{}
	if raw, ok := record.Get("properties"); ok && raw != nil {
		if err := properties.Unmarshal(raw); err != nil {
			return nil, err
		}
	}
	delete(properties, "weight")
	relation.Properties = properties

	if raw, ok := record.Get("weight"); ok && raw != nil {
		w, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("relation %s has a non numeric weight %v", relation.ID, raw)
		}
		relation.Weight = &w
	}

	return &model.RelationConnection{
		Relation: relation,
		Source: &model.Entity{
			ID:     relation.SourceID,
			Name:   stringValue(record, "sourceName"),
			Type:   stringValue(record, "sourceType"),
			Degree: intValue(record, "sourceDegree"),
		},
		Target: &model.Entity{
			ID:     relation.TargetID,
			Name:   stringValue(record, "targetName"),
			Type:   stringValue(record, "targetType"),
			Degree: intValue(record, "targetDegree"),
		},
		KeywordHits: intValue(record, "hits"),
	}, nil
}

func stringValue(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func intValue(record *neo4j.Record, key string) int {
	v, ok := record.Get(key)
	if !ok {
		return 0
	}
	f, _ := toFloat(v)
	return int(f)
}

func floatValue(record *neo4j.Record, key string) float64 {
	v, ok := record.Get(key)
	if !ok {
		return 0
	}
	f, _ := toFloat(v)
	return f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
