package analysis

import "regexp"

// graphQLSuffix matches the selector and extension the delivery API appends
// to fragment paths: ".cfm.json", ".cfm.model.json", ".cfm.<variant>.json".
var graphQLSuffix = regexp.MustCompile(`\.cfm(\.[^./]+)*\.json$`)

// CleanPath strips a trailing GraphQL call suffix from path. Paths without
// one are returned unchanged, and CleanPath(CleanPath(p)) == CleanPath(p).
func CleanPath(path string) string {
	if loc := graphQLSuffix.FindStringIndex(path); loc != nil {
		return path[:loc[0]]
	}
	return path
}
