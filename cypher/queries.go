package cypher

// Entities are (:Entity {name, type, embedding}) nodes. Relations are any
// relationship between two entities; the relation label is taken from the
// type or path property, falling back to the relationship type.

const entityColumns = `elementId(e) AS id, e.name AS name, coalesce(e.type, '') AS type, COUNT { (e)--() } AS degree`

const selectEntitiesBySimilarity = `
CALL db.index.vector.queryNodes($index, $limit, $embedding) YIELD node AS e, score
RETURN ` + entityColumns + `, score
ORDER BY score DESC, id ASC`

const selectEntitiesByName = `
MATCH (e:Entity)
WHERE toLower(e.name) CONTAINS toLower($name)
WITH e, CASE WHEN toLower(e.name) = toLower($name) THEN 1.0 ELSE $containsScore END AS score
RETURN ` + entityColumns + `, score
ORDER BY score DESC, degree ASC, id ASC
LIMIT $limit`

const selectDegree = `
MATCH (e:Entity)
WHERE elementId(e) = $id
RETURN COUNT { (e)--() } AS degree`

// selectRelations is completed with one of the match conditions below. The
// searchable text is the relation label followed by the property values in
// key order, the same text the in-memory store matches.
const selectRelations = `
MATCH (e:Entity)-[r]-(o:Entity)
WHERE elementId(e) = $id
WITH r, o, startNode(r) AS s, endNode(r) AS t,
	toLower(reduce(acc = coalesce(r.type, r.path, type(r)), k IN COLLECT {
		UNWIND keys(r) AS prop
		WITH prop WHERE prop <> 'weight'
		RETURN prop ORDER BY prop
	} | acc + ' ' + coalesce(toStringOrNull(r[k]), ''))) AS text
WITH r, o, s, t, size([term IN $terms WHERE %s]) AS hits
WHERE size($terms) = 0 OR hits > 0
WITH r, s, t, hits, COUNT { (o)--() } AS otherDegree
RETURN elementId(r) AS id,
	coalesce(r.type, r.path, type(r)) AS relationType,
	properties(r) AS properties,
	r.weight AS weight,
	hits,
	elementId(s) AS sourceId, s.name AS sourceName, coalesce(s.type, '') AS sourceType, COUNT { (s)--() } AS sourceDegree,
	elementId(t) AS targetId, t.name AS targetName, coalesce(t.type, '') AS targetType, COUNT { (t)--() } AS targetDegree
ORDER BY coalesce(toFloat(r.weight), 1.0) DESC, otherDegree ASC, id ASC
LIMIT $limit`

// Fuzzy terms are cut to a prefix and use matchSubstring.
// Token terms are regex quoted before they are sent.
const (
	matchSubstring = `text CONTAINS term`
	matchToken     = `text =~ ('(?s).*\\b' + term + '\\b.*')`
)

const createVectorIndex = `
CREATE VECTOR INDEX %s IF NOT EXISTS
FOR (e:Entity) ON (e.embedding)
OPTIONS {indexConfig: {` + "`vector.dimensions`" + `: %d, ` + "`vector.similarity_function`" + `: 'cosine'}}`
