package repository

import (
	"strconv"
	"strings"
)

// query assembles SQL with positional parameters for filters that vary per call.
type query struct {
	sb   strings.Builder
	args []any
}

func newQuery(prefix string, first any) *query {
	q := &query{}
	q.raw(prefix)
	q.arg(first)
	return q
}

func (q *query) raw(s string) {
	q.sb.WriteString(s)
}

// arg binds v, writes its placeholder and returns it.
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	p := "$" + strconv.Itoa(len(q.args))
	q.sb.WriteString(p)
	return p
}

func (q *query) and(cond string, v any) {
	q.raw(" AND " + cond)
	q.arg(v)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern returns an ILIKE pattern matching s literally anywhere.
// Use it with ESCAPE '\'.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (q *query) String() string {
	return q.sb.String()
}
