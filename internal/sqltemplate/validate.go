package sqltemplate

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jingxuan-bi/report-service/internal/models"
)

const (
	dateLayout = "2006-01-02"

	// MaxQuerySpanDays bounds interactive date ranges, MaxExportSpanDays
	// bounds export jobs.
	MaxQuerySpanDays  = 31
	MaxExportSpanDays = 92

	maxPageSize = 1000
)

var (
	mobileRe = regexp.MustCompile(`^1[3-9]\d{9}$`)
	idListRe = regexp.MustCompile(`^\d+(,\d+)*$`)
)

// ValidationError aggregates every parameter violation so callers can
// report them all in one response.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid query parameters: " + strings.Join(e.Violations, "; ")
}

// CleanStoreIDs normalizes a comma separated id list: full-width commas
// become ASCII, whitespace around entries is dropped, empty entries are
// removed.
func CleanStoreIDs(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.ReplaceAll(raw, "，", ",")
	var cleaned []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			cleaned = append(cleaned, part)
		}
	}
	return strings.Join(cleaned, ",")
}

// ValidateParams checks params against the rules of the named report
// type. All violations are collected before returning. With paginated
// false the page and pageSize fields are ignored.
func ValidateParams(name string, p *models.QueryParams, maxSpanDays int, paginated bool) error {
	def, ok := reports[name]
	if !ok {
		return fmt.Errorf("unknown report type %q", name)
	}

	var v []string

	switch def.dates {
	case dateModeRange:
		v = append(v, checkDateRange("startTime", p.StartTime, "endTime", p.EndTime, maxSpanDays, true)...)
	case dateModeCouponRanges:
		hasReceive := p.ReceiveStartTime != "" || p.ReceiveEndTime != ""
		hasUse := p.UseStartTime != "" || p.UseEndTime != ""
		if !hasReceive && !hasUse {
			v = append(v, "a receive or use date range is required")
		}
		if hasReceive {
			v = append(v, checkDateRange("receiveStartTime", p.ReceiveStartTime, "receiveEndTime", p.ReceiveEndTime, maxSpanDays, true)...)
		}
		if hasUse {
			v = append(v, checkDateRange("useStartTime", p.UseStartTime, "useEndTime", p.UseEndTime, maxSpanDays, true)...)
		}
	case dateModeSingle:
		if p.Date == "" {
			v = append(v, "date is required")
		} else if _, err := time.Parse(dateLayout, p.Date); err != nil {
			v = append(v, fmt.Sprintf("date %q is not a valid date", p.Date))
		}
	}

	if p.Mobile != "" && !mobileRe.MatchString(p.Mobile) {
		v = append(v, "mobile must be a valid 11 digit number")
	}
	if p.StationCodes != "" {
		if cleaned := CleanStoreIDs(p.StationCodes); cleaned == "" || !idListRe.MatchString(cleaned) {
			v = append(v, "stationCodes must be a comma separated list of numeric ids")
		}
	}
	if p.CouponIDs != "" {
		if cleaned := CleanStoreIDs(p.CouponIDs); cleaned == "" || !idListRe.MatchString(cleaned) {
			v = append(v, "couponIds must be a comma separated list of numeric ids")
		}
	}
	for _, s := range p.Statuses {
		if !models.IsValidOrderStatus(s) {
			v = append(v, fmt.Sprintf("status %d is not a valid order status", s))
		}
	}
	if paginated {
		if p.Page < 1 {
			v = append(v, "page must be at least 1")
		}
		if p.PageSize < 1 || p.PageSize > maxPageSize {
			v = append(v, fmt.Sprintf("pageSize must be between 1 and %d", maxPageSize))
		}
	}

	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

func checkDateRange(startName, start, endName, end string, maxSpanDays int, required bool) []string {
	var v []string
	if start == "" || end == "" {
		if required {
			v = append(v, fmt.Sprintf("%s and %s are required", startName, endName))
		}
		return v
	}
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		v = append(v, fmt.Sprintf("%s %q is not a valid date", startName, start))
	}
	to, err2 := time.Parse(dateLayout, end)
	if err2 != nil {
		v = append(v, fmt.Sprintf("%s %q is not a valid date", endName, end))
	}
	if err != nil || err2 != nil {
		return v
	}
	if from.After(to) {
		v = append(v, fmt.Sprintf("%s must not be after %s", startName, endName))
		return v
	}
	if spanDays := int(to.Sub(from).Hours()/24) + 1; spanDays > maxSpanDays {
		v = append(v, fmt.Sprintf("date range cannot exceed %d days", maxSpanDays))
	}
	return v
}
