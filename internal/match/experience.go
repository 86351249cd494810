package match

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hiregrid/matchengine/internal/domain"
)

// Experience is a heuristic years-of-experience estimate with provenance.
// Confidence is only ever produced by the formulas below.
type Experience struct {
	Years      int
	Confidence float64
	Method     string
}

// timeNow is swapped in tests so date-range math is reproducible.
var timeNow = time.Now

const (
	maxYears        = 60
	maxRangeMonths  = 50 * 12 // cap per range against pathological input
	explicitConf    = 0.95
	externalConf    = 0.65
	reconciledConf  = 0.90
	dateRangesConf  = 0.85
	dateRangesBase  = 0.70
	dateRangesBonus = 0.05
)

// explicitPatterns match direct statements like "7 years of experience",
// "experience: 5 years", "10+ yrs". Ordered; the first pattern that matches
// wins and its first match is used.
var explicitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(\d{1,2})\s*\+?\s*(?:years?|yrs?)\s+(?:of\s+)?experience\b`),
	regexp.MustCompile(`(?i)\bexperience\s*:?\s*(\d{1,2})\s*\+?\s*(?:years?|yrs?)\b`),
	regexp.MustCompile(`(?i)\b(\d{1,2})\s*\+\s*(?:years?|yrs?)\b`),
}

// dateRangeRe matches "[Month] YYYY - [Month] YYYY|Present|Current" with an
// optional month token on either side.
var dateRangeRe = regexp.MustCompile(`(?i)\b(?:(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+)?(\d{4})\s*(?:[-\x{2013}\x{2014}]|to)\s*(?:(?:(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?,?\s+)?(\d{4})|(present|current))\b`)

var monthIndex = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// ExtractYears estimates years of experience from resume text with a
// three-tier precedence: explicit statement, date-range aggregation, then
// reconciliation with an optional external estimate (e.g. an LLM-provided
// number passed in by the caller; this function never calls anything).
// It never fails: absence of any signal yields {0, 0, "unknown"}.
func ExtractYears(text string, external *float64) Experience {
	if e, ok := extractExplicit(text); ok {
		return e
	}
	ranges, ok := extractDateRanges(text)
	if ok {
		if external != nil {
			ext := clampYears(int(math.Round(*external)))
			// External estimates are corroborating evidence only: within one
			// year they lift the result, on conflict the date ranges win.
			if abs(ranges.Years-ext) <= 1 {
				return Experience{
					Years:      maxInt(ranges.Years, ext),
					Confidence: math.Min(math.Max(ranges.Confidence, externalConf)+0.10, reconciledConf),
					Method:     domain.ExperienceSourceDateRangesExternal,
				}
			}
		}
		return ranges
	}
	if external != nil {
		return Experience{
			Years:      clampYears(int(math.Round(*external))),
			Confidence: externalConf,
			Method:     domain.ExperienceSourceExternal,
		}
	}
	return Experience{Method: domain.ExperienceSourceUnknown}
}

func extractExplicit(text string) (Experience, bool) {
	for _, re := range explicitPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return Experience{
			Years:      clampYears(n),
			Confidence: explicitConf,
			Method:     domain.ExperienceSourceExplicit,
		}, true
	}
	return Experience{}, false
}

// extractDateRanges unions the months covered by every matched range, so
// overlapping engagements are not double-counted.
func extractDateRanges(text string) (Experience, bool) {
	now := timeNow()
	nowIdx := monthIdxOf(now.Year(), int(now.Month()))

	covered := make(map[int]struct{})
	matches := 0
	for _, m := range dateRangeRe.FindAllStringSubmatch(text, -1) {
		startYear, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		startMonth := 1
		if m[1] != "" {
			startMonth = monthIndex[strings.ToLower(m[1])]
		}
		start := monthIdxOf(startYear, startMonth)

		var end int
		if m[5] != "" { // Present / Current
			end = nowIdx
		} else {
			endYear, err := strconv.Atoi(m[4])
			if err != nil {
				continue
			}
			endMonth := 12
			if m[3] != "" {
				endMonth = monthIndex[strings.ToLower(m[3])]
			}
			end = monthIdxOf(endYear, endMonth)
		}

		if start < 0 {
			start = 0
		}
		if end > nowIdx {
			end = nowIdx
		}
		if end < start {
			continue
		}
		if end-start+1 > maxRangeMonths {
			end = start + maxRangeMonths - 1
		}
		for i := start; i <= end; i++ {
			covered[i] = struct{}{}
		}
		matches++
	}
	if matches == 0 {
		return Experience{}, false
	}
	conf := dateRangesBase + dateRangesBonus*float64(minInt(matches, 3))
	return Experience{
		Years:      clampYears(len(covered) / 12),
		Confidence: math.Min(conf, dateRangesConf),
		Method:     domain.ExperienceSourceDateRanges,
	}, true
}

func monthIdxOf(year, month int) int { return year*12 + month - 1 }

func clampYears(n int) int {
	if n < 0 {
		return 0
	}
	if n > maxYears {
		return maxYears
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
