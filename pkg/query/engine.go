// Package query computes derived views over stored submissions for data-view
// endpoints: condition filtering, field projection or aggregation, and
// pagination.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mockstack/mockstack/pkg/mockapi"
)

// Params carries the caller-supplied pagination inputs, typically parsed
// from the request's query string.
type Params struct {
	// Limit is the requested page size (0 = use the endpoint default)
	Limit int

	// Offset is the number of records to skip
	Offset int
}

// PageMeta describes the slice of results returned for a paginated view.
type PageMeta struct {
	// Total is the number of records matching the filters
	Total int `json:"total"`

	// Limit is the effective page size after clamping
	Limit int `json:"limit"`

	// Offset is the number of records skipped
	Offset int `json:"offset"`

	// Count is the number of records in this page
	Count int `json:"count"`

	// HasMore reports whether records remain past this page
	HasMore bool `json:"hasMore"`
}

// Result is the output of a data-view evaluation. For full/field modes
// Records is populated (with Meta when pagination is enabled); for
// aggregator mode Aggregates is populated instead.
type Result struct {
	Mode       mockapi.DataSourceMode
	Records    []map[string]any
	Aggregates map[string]any
	Meta       *PageMeta
}

// Run evaluates a data-view endpoint over its data source's submissions.
// A nil submission list (dangling data source) yields an empty full result;
// a misconfigured aggregator yields an empty aggregate map rather than an
// error - configuration problems are caught at load time, and the engine
// stays defensive at runtime.
func Run(endpoint *mockapi.Endpoint, submissions []*mockapi.Submission, params Params) *Result {
	filtered := filter(submissions, endpoint.Conditions)

	switch endpoint.Mode() {
	case mockapi.ModeAggregator:
		return &Result{
			Mode:       mockapi.ModeAggregator,
			Aggregates: aggregate(filtered, endpoint.Aggregator, endpoint.SelectedFields),
		}
	case mockapi.ModeField:
		records := project(filtered, endpoint.SelectedFields)
		return paginate(mockapi.ModeField, records, endpoint.Pagination, params)
	default:
		records := make([]map[string]any, len(filtered))
		for i, s := range filtered {
			records[i] = s.Data
		}
		return paginate(mockapi.ModeFull, records, endpoint.Pagination, params)
	}
}

// filter keeps submissions whose payload satisfies every condition.
func filter(submissions []*mockapi.Submission, conditions []mockapi.Condition) []*mockapi.Submission {
	if len(conditions) == 0 {
		return submissions
	}

	out := make([]*mockapi.Submission, 0, len(submissions))
	for _, s := range submissions {
		if matchesAll(s.Data, conditions) {
			out = append(out, s)
		}
	}
	return out
}

func matchesAll(data map[string]any, conditions []mockapi.Condition) bool {
	for _, c := range conditions {
		if !matches(data[c.Field], c.Operator, c.Value) {
			return false
		}
	}
	return true
}

// matches applies one condition operator. Equality is loose: if both sides
// coerce to numbers they compare numerically, otherwise their string forms
// compare. Ordered comparisons require both sides numeric, else false. The
// substring operators work on string forms, case-sensitively.
func matches(fieldValue any, op mockapi.Operator, condValue any) bool {
	switch op {
	case mockapi.OpEquals:
		return looseEqual(fieldValue, condValue)
	case mockapi.OpNotEquals:
		return !looseEqual(fieldValue, condValue)
	case mockapi.OpGreater, mockapi.OpLess, mockapi.OpGreaterEq, mockapi.OpLessEq:
		a, aOK := toNumber(fieldValue)
		b, bOK := toNumber(condValue)
		if !aOK || !bOK {
			return false
		}
		switch op {
		case mockapi.OpGreater:
			return a > b
		case mockapi.OpLess:
			return a < b
		case mockapi.OpGreaterEq:
			return a >= b
		default:
			return a <= b
		}
	case mockapi.OpContains:
		return strings.Contains(stringForm(fieldValue), stringForm(condValue))
	case mockapi.OpStartsWith:
		return strings.HasPrefix(stringForm(fieldValue), stringForm(condValue))
	case mockapi.OpEndsWith:
		return strings.HasSuffix(stringForm(fieldValue), stringForm(condValue))
	}
	return false
}

func looseEqual(a, b any) bool {
	an, aOK := toNumber(a)
	bn, bOK := toNumber(b)
	if aOK && bOK {
		return an == bn
	}
	return stringForm(a) == stringForm(b)
}

// toNumber attempts numeric coercion: native numbers and numeric strings.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func stringForm(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// project keeps only the selected field names on each record.
func project(submissions []*mockapi.Submission, fields []string) []map[string]any {
	out := make([]map[string]any, len(submissions))
	for i, s := range submissions {
		record := make(map[string]any, len(fields))
		for _, f := range fields {
			if v, ok := s.Data[f]; ok {
				record[f] = v
			}
		}
		out[i] = record
	}
	return out
}

// aggregate computes one scalar per selected field. Count ignores field
// values entirely and reports the cardinality of the filtered set.
func aggregate(submissions []*mockapi.Submission, agg mockapi.Aggregator, fields []string) map[string]any {
	out := make(map[string]any)

	if agg == mockapi.AggCount {
		out["count"] = len(submissions)
		return out
	}
	if agg == "" || len(fields) == 0 {
		return out
	}

	for _, field := range fields {
		out[field] = aggregateField(submissions, agg, field)
	}
	return out
}

func aggregateField(submissions []*mockapi.Submission, agg mockapi.Aggregator, field string) any {
	var sum float64
	var count int
	var minV, maxV float64

	for _, s := range submissions {
		n, ok := toNumber(s.Data[field])
		if !ok {
			// Non-numeric values are ignored
			continue
		}
		if count == 0 {
			minV, maxV = n, n
		} else {
			if n < minV {
				minV = n
			}
			if n > maxV {
				maxV = n
			}
		}
		sum += n
		count++
	}

	switch agg {
	case mockapi.AggSum, mockapi.AggTotal:
		return sum
	case mockapi.AggAvg:
		if count == 0 {
			return 0.0
		}
		return sum / float64(count)
	case mockapi.AggMin:
		if count == 0 {
			return nil
		}
		return minV
	case mockapi.AggMax:
		if count == 0 {
			return nil
		}
		return maxV
	}
	return nil
}

// paginate slices the record list according to the endpoint's pagination
// settings and the caller's params. With pagination disabled the whole list
// is returned and Meta stays nil.
func paginate(mode mockapi.DataSourceMode, records []map[string]any, cfg mockapi.PaginationConfig, params Params) *Result {
	if !cfg.Enabled {
		return &Result{Mode: mode, Records: records}
	}

	limit := clampLimit(params.Limit, cfg)
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	total := len(records)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &Result{
		Mode:    mode,
		Records: records[start:end],
		Meta: &PageMeta{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			Count:   end - start,
			HasMore: end < total,
		},
	}
}

// clampLimit resolves the effective page size: the endpoint default when the
// caller did not ask, clamped into [1, maxLimit].
func clampLimit(requested int, cfg mockapi.PaginationConfig) int {
	limit := requested
	if limit <= 0 {
		limit = cfg.DefaultLimit
	}
	if limit <= 0 {
		limit = 1
	}
	if cfg.MaxLimit > 0 && limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	return limit
}
