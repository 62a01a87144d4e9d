package repository

import (
	"fmt"
	"sort"
	"strings"

	apperrors "computor-backend/pkg/errors"
)

// buildWhere renders a WHERE clause from a filter map. Only columns in the
// allow-list may be referenced; filter keys are sorted so identical filter
// maps render identical SQL (and therefore share one list-cache entry).
func buildWhere(filters map[string]any, allowed map[string]string) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses []string
	var args []any
	for _, k := range keys {
		column, ok := allowed[k]
		if !ok {
			return "", nil, apperrors.NewValidation("unknown filter: " + k)
		}
		if filters[k] == nil {
			clauses = append(clauses, column+" IS NULL")
			continue
		}
		args = append(args, filters[k])
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
