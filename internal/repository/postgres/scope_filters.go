package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Scope narrows the planning tables that are read.
type Scope struct {
	// ItemIDs limits rows to these items; empty reads every item.
	ItemIDs []string
	// Since drops dated rows before it; zero reads the whole history.
	Since time.Time
}

// buildScopeClause constructs SQL filter clauses for planning queries.
// idCol and dateCol may be empty when the table has no such column.
func buildScopeClause(scope Scope, idCol, dateCol string, startIndex int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	idx := startIndex

	if idCol != "" && len(scope.ItemIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", idCol, idx))
		args = append(args, pq.Array(scope.ItemIDs))
		idx++
	}

	if dateCol != "" && !scope.Since.IsZero() {
		clauses = append(clauses, fmt.Sprintf("%s >= $%d", dateCol, idx))
		args = append(args, scope.Since)
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
