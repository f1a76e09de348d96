package sqltemplate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jingxuan-bi/report-service/internal/models"
)

const (
	markerFilters      = "{{filters}}"
	markerTotalFilters = "{{total_filters}}"
)

// ProcessedSQL is a fully rendered statement: every template marker
// replaced, every value positioned to match its placeholder.
type ProcessedSQL struct {
	SQL           string
	Params        []interface{}
	HasPagination bool
}

// clause keeps a filter fragment and its bound values together so the
// two can never drift apart during assembly.
type clause struct {
	fragment string
	values   []interface{}
}

type dateMode int

const (
	dateModeRange dateMode = iota
	dateModeCouponRanges
	dateModeSingle
)

type reportDef struct {
	countTemplate string
	dates         dateMode
	build         func(p *models.QueryParams) map[string][]clause
}

// reports is the registry of every known report type. The count
// template is named only where COUNT derivation from the main
// statement would be unsound.
var reports = map[string]reportDef{
	"order-query":            {build: buildOrderClauses},
	"order-stats-query":      {build: buildOrderClauses},
	"penetration-query":      {countTemplate: "penetration-query-count", build: buildPenetrationClauses},
	"coupon-query":           {dates: dateModeCouponRanges, build: buildCouponClauses},
	"support-query":          {countTemplate: "support-query-count", build: buildSupportClauses},
	"invitation-query":       {build: buildInvitationClauses},
	"mall-user-query":        {dates: dateModeSingle, build: buildMallUserClauses},
	"freight-activity-query": {build: buildFreightActivityClauses},
}

// KnownReports lists the registered report type names.
func KnownReports() []string {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	return names
}

// IsKnownReport reports whether name is a registered report type.
func IsKnownReport(name string) bool {
	_, ok := reports[name]
	return ok
}

// Render substitutes every marker in the template with the filter
// clauses built from params, appending values in marker text order so
// positional placeholders line up. When tpl is nil the built-in
// default for name is used. With paginate false the trailing
// LIMIT ? OFFSET ? pair is stripped instead of bound.
func Render(name string, tpl *Template, params *models.QueryParams, paginate bool) (*ProcessedSQL, error) {
	def, ok := reports[name]
	if !ok {
		return nil, fmt.Errorf("unknown report type %q", name)
	}

	if tpl == nil {
		var err error
		if tpl, err = defaultTemplate(name); err != nil {
			return nil, err
		}
	}

	clauses := def.build(params)
	sql := tpl.SQL
	var values []interface{}

	for {
		pos, marker := firstMarker(sql, clauses)
		if pos < 0 {
			break
		}
		frag, vals := joinClauses(clauses[marker])
		sql = sql[:pos] + frag + sql[pos+len(marker):]
		values = append(values, vals...)
	}
	if strings.Contains(sql, "{{") {
		return nil, fmt.Errorf("template %s contains an unresolved marker", name)
	}

	hasPagination := tpl.HasPagination
	if hasPagination {
		if paginate {
			values = append(values, params.PageSize, (params.Page-1)*params.PageSize)
		} else {
			sql = strings.TrimSpace(paginationTailRe.ReplaceAllString(sql, ""))
			hasPagination = false
		}
	}

	if n := strings.Count(sql, "?"); n != len(values) {
		return nil, fmt.Errorf("template %s produced %d placeholders for %d parameters", name, n, len(values))
	}

	return &ProcessedSQL{SQL: sql, Params: values, HasPagination: hasPagination}, nil
}

// RenderCount produces the row-count statement for a report. A sibling
// count template takes precedence; otherwise the count is derived from
// the main statement by text surgery, which refuses shapes it cannot
// rewrite soundly.
func RenderCount(name string, tpl, countTpl *Template, params *models.QueryParams) (*ProcessedSQL, error) {
	def, ok := reports[name]
	if !ok {
		return nil, fmt.Errorf("unknown report type %q", name)
	}

	if countTpl == nil && def.countTemplate != "" {
		var err error
		if countTpl, err = defaultTemplate(def.countTemplate); err != nil {
			return nil, err
		}
	}
	if countTpl != nil {
		return Render(name, countTpl, params, false)
	}

	rendered, err := Render(name, tpl, params, false)
	if err != nil {
		return nil, err
	}
	countSQL, err := deriveCountSQL(rendered.SQL)
	if err != nil {
		return nil, fmt.Errorf("cannot count %s: %w", name, err)
	}
	if n := strings.Count(countSQL, "?"); n != len(rendered.Params) {
		return nil, fmt.Errorf("derived count for %s produced %d placeholders for %d parameters", name, n, len(rendered.Params))
	}
	return &ProcessedSQL{SQL: countSQL, Params: rendered.Params}, nil
}

func defaultTemplate(name string) (*Template, error) {
	raw, ok := defaultTemplateSQL[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return ParseTemplate(name, raw)
}

func firstMarker(sql string, clauses map[string][]clause) (int, string) {
	pos, found := -1, ""
	for marker := range clauses {
		if i := strings.Index(sql, marker); i >= 0 && (pos < 0 || i < pos) {
			pos, found = i, marker
		}
	}
	return pos, found
}

func joinClauses(cs []clause) (string, []interface{}) {
	var b strings.Builder
	var values []interface{}
	for i, c := range cs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c.fragment)
		values = append(values, c.values...)
	}
	return b.String(), values
}

var (
	limitTailRe = regexp.MustCompile(`(?i)\sLIMIT\s+\S+(\s+OFFSET\s+\S+)?\s*$`)
	groupByRe   = regexp.MustCompile(`(?i)\sGROUP\s+BY\s`)
	orderByRe   = regexp.MustCompile(`(?i)\sORDER\s+BY\s`)
	fromRe      = regexp.MustCompile(`(?i)\bFROM\b`)
)

// deriveCountSQL rewrites a SELECT into SELECT COUNT(*). It rejects
// CTEs and subqueries in the select list, where the rewrite would
// swallow part of the statement.
func deriveCountSQL(sql string) (string, error) {
	trimmed := strings.TrimSpace(sql)
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "WITH") {
		return "", errors.New("statement uses a CTE")
	}
	selIdx := strings.Index(upper, "SELECT")
	if selIdx != 0 {
		return "", errors.New("statement is not a SELECT")
	}
	loc := fromRe.FindStringIndex(trimmed)
	if loc == nil {
		return "", errors.New("statement has no FROM clause")
	}
	if strings.Contains(upper[len("SELECT"):loc[0]], "SELECT") {
		return "", errors.New("select list contains a subquery")
	}

	out := "SELECT COUNT(*) AS total " + trimmed[loc[0]:]
	if m := groupByRe.FindStringIndex(out); m != nil {
		out = out[:m[0]]
	} else if m := orderByRe.FindStringIndex(out); m != nil {
		out = out[:m[0]]
	}
	out = strings.TrimSpace(limitTailRe.ReplaceAllString(out, ""))
	return out, nil
}

func one(fragment string, value interface{}) clause {
	return clause{fragment: fragment, values: []interface{}{value}}
}

func dateRangeClauses(column string, start, end string) []clause {
	var cs []clause
	if start != "" {
		cs = append(cs, one("AND "+column+" >= ?", start))
	}
	if end != "" {
		cs = append(cs, one("AND "+column+" < DATE_ADD(?, INTERVAL 1 DAY)", end))
	}
	return cs
}

func statusInClause(column string, statuses []int) clause {
	placeholders := strings.TrimPrefix(strings.Repeat(",?", len(statuses)), ",")
	values := make([]interface{}, len(statuses))
	for i, s := range statuses {
		values[i] = s
	}
	return clause{fragment: fmt.Sprintf("AND %s IN (%s)", column, placeholders), values: values}
}

func buildOrderClauses(p *models.QueryParams) map[string][]clause {
	cs := dateRangeClauses("o.create_time", p.StartTime, p.EndTime)
	if codes := CleanStoreIDs(p.StationCodes); codes != "" {
		cs = append(cs, one("AND FIND_IN_SET(s.out_code, ?)", codes))
	}
	if p.Mobile != "" {
		cs = append(cs, one("AND u.user_mobile = ?", p.Mobile))
	}
	if len(p.Statuses) > 0 {
		cs = append(cs, statusInClause("o.status", p.Statuses))
	}
	if p.OrderNumber != "" {
		cs = append(cs, one("AND o.order_no LIKE ?", "%"+p.OrderNumber+"%"))
	}
	return map[string][]clause{markerFilters: cs}
}

// buildPenetrationClauses binds the same date range and store filter
// under two markers with different table aliases. Values repeat in the
// rendered statement once per marker occurrence.
func buildPenetrationClauses(p *models.QueryParams) map[string][]clause {
	codes := CleanStoreIDs(p.StationCodes)
	build := func(orderAlias, storeAlias string) []clause {
		cs := dateRangeClauses(orderAlias+".create_time", p.StartTime, p.EndTime)
		if codes != "" {
			cs = append(cs, one("AND FIND_IN_SET("+storeAlias+".out_code, ?)", codes))
		}
		return cs
	}
	return map[string][]clause{
		markerTotalFilters: build("o2", "st2"),
		markerFilters:      build("o", "s"),
	}
}

func buildCouponClauses(p *models.QueryParams) map[string][]clause {
	var cs []clause
	cs = append(cs, dateRangeClauses("c.receive_time", p.ReceiveStartTime, p.ReceiveEndTime)...)
	cs = append(cs, dateRangeClauses("c.use_time", p.UseStartTime, p.UseEndTime)...)
	if ids := CleanStoreIDs(p.CouponIDs); ids != "" {
		cs = append(cs, one("AND FIND_IN_SET(c.coupon_id, ?)", ids))
	}
	if p.ActivityID != "" {
		cs = append(cs, one("AND c.activity_id = ?", p.ActivityID))
	}
	if p.BarCode != "" {
		cs = append(cs, one("AND c.bar_code = ?", p.BarCode))
	}
	if p.Mobile != "" {
		cs = append(cs, one("AND u.user_mobile = ?", p.Mobile))
	}
	if codes := CleanStoreIDs(p.StationCodes); codes != "" {
		cs = append(cs, one("AND FIND_IN_SET(s.out_code, ?)", codes))
	}
	return map[string][]clause{markerFilters: cs}
}

func buildSupportClauses(p *models.QueryParams) map[string][]clause {
	cs := dateRangeClauses("o.create_time", p.StartTime, p.EndTime)
	if p.PartyCode != "" {
		cs = append(cs, one("AND s.party_code = ?", p.PartyCode))
	}
	if codes := CleanStoreIDs(p.StationCodes); codes != "" {
		cs = append(cs, one("AND FIND_IN_SET(s.out_code, ?)", codes))
	}
	return map[string][]clause{markerFilters: cs}
}

func buildInvitationClauses(p *models.QueryParams) map[string][]clause {
	cs := dateRangeClauses("i.register_time", p.StartTime, p.EndTime)
	if p.Mobile != "" {
		cs = append(cs, clause{
			fragment: "AND (i.inviter_mobile = ? OR i.invitee_mobile = ?)",
			values:   []interface{}{p.Mobile, p.Mobile},
		})
	}
	if codes := CleanStoreIDs(p.StationCodes); codes != "" {
		cs = append(cs, one("AND FIND_IN_SET(s.out_code, ?)", codes))
	}
	return map[string][]clause{markerFilters: cs}
}

func buildMallUserClauses(p *models.QueryParams) map[string][]clause {
	var cs []clause
	if p.Date != "" {
		cs = append(cs, one("AND d.stat_date = ?", p.Date))
	}
	if p.Mobile != "" {
		cs = append(cs, one("AND u.user_mobile = ?", p.Mobile))
	}
	return map[string][]clause{markerFilters: cs}
}

func buildFreightActivityClauses(p *models.QueryParams) map[string][]clause {
	var cs []clause
	if p.ActivityID != "" {
		cs = append(cs, one("AND f.activity_id = ?", p.ActivityID))
	}
	cs = append(cs, dateRangeClauses("o.create_time", p.StartTime, p.EndTime)...)
	return map[string][]clause{markerFilters: cs}
}
