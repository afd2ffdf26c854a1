package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern builds a substring pattern for SQL LIKE/ILIKE with `\` as the
// escape character, so wildcards in the keyword match literally.
func LikePattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}
