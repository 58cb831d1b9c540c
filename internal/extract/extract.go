// Package extract recovers structured invoice fields from the flattened
// text of one payment advice PDF. Parsing is an ordered pipeline of named
// strategies over an accumulator record; the order is load-bearing and
// tuned to the one vendor layout these documents come from. Changing a
// pattern changes extraction results for historical data, so the patterns
// stay exactly as they are even where they look overly narrow.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Record is the best-effort extraction result for one attachment. A zero
// Amount means the amount pattern did not match; callers must drop the
// record in that case.
type Record struct {
	Amount        float64
	Date          string
	ServicePeriod string
	Vendor        string
	RawLocation   string
	Stall         string
	Location      string
}

type input struct {
	Text     string
	FileName string
	Now      time.Time
}

type strategy struct {
	name  string
	apply func(input, Record) Record
}

// Strategies run in this order. Every strategy falls through on no-match
// instead of failing, and only fills what it names.
var strategies = []strategy{
	{"net-payable-amount", extractAmount},
	{"raised-on-date", extractRaisedDate},
	{"advice-header", extractAdviceHeader},
	{"annexure-line", extractAnnexureLine},
	{"service-period", extractServicePeriod},
	{"stall-label", composeStallLabel},
	{"classify-location", classifyLocation},
}

// Parse runs the full strategy pipeline against the given PDF text. The
// attachment filename is a secondary signal for location classification.
func Parse(text, fileName string) Record {
	return ParseAt(text, fileName, time.Now())
}

// ParseAt is Parse with an explicit processing time, used as the fallback
// invoice date when the document carries none.
func ParseAt(text, fileName string, now time.Time) Record {
	in := input{Text: text, FileName: fileName, Now: now}
	var rec Record
	for _, s := range strategies {
		rec = s.apply(in, rec)
	}
	return rec
}

var amountRe = regexp.MustCompile(`(?i)Net Payable Amount\s*:?\s*(?:Rs\.?\s*|₹\s*)?([0-9][0-9,]*(?:\.[0-9]+)?)`)

func extractAmount(in input, rec Record) Record {
	m := amountRe.FindStringSubmatch(in.Text)
	if m == nil {
		return rec
	}
	raw := strings.ReplaceAll(m[1], ",", "")
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return rec
	}
	rec.Amount = amount
	return rec
}

var raisedOnRe = regexp.MustCompile(`Raised On\s*:\s*(\d{4}-\d{2}-\d{2})`)

func extractRaisedDate(in input, rec Record) Record {
	if m := raisedOnRe.FindStringSubmatch(in.Text); m != nil {
		rec.Date = m[1]
		return rec
	}
	// Documents without a raised date default to the processing date.
	rec.Date = in.Now.Format("2006-01-02")
	return rec
}

// adviceHeaderRe matches the two-line block following the advice header:
// first line vendor name, second line raw site string.
var adviceHeaderRe = regexp.MustCompile(`Payment Advice Raised To\s*\r?\n[ \t]*([^\r\n]+)\r?\n[ \t]*([^\r\n]+)`)

func extractAdviceHeader(in input, rec Record) Record {
	m := adviceHeaderRe.FindStringSubmatch(in.Text)
	if m == nil {
		return rec
	}
	rec.Vendor = strings.TrimSpace(m[1])
	rec.RawLocation = strings.TrimSpace(m[2])
	return rec
}

// annexureRe matches a detail line of the form
//
//	2024-03-11 Monday Live Counter Spice Route Bangalore HQ 4,500.00 4,500.00
//
// where the free text between the counter type and the amounts mixes the
// vendor name with a location fragment.
var annexureRe = regexp.MustCompile(`(?m)^\s*\d{4}-\d{2}-\d{2}\s+[A-Za-z]+\s+(?:Live Counter|Tuck Shop)\s+(.+?)(?:\s+[0-9][0-9,]*(?:\.[0-9]+)?)+\s*$`)

func extractAnnexureLine(in input, rec Record) Record {
	m := annexureRe.FindStringSubmatch(in.Text)
	if m == nil {
		return rec
	}
	vendor, fragment := splitAnnexureText(strings.TrimSpace(m[1]))
	if rec.Vendor == "" {
		rec.Vendor = vendor
	}
	if rec.RawLocation == "" {
		rec.RawLocation = fragment
	}
	return rec
}

// splitAnnexureText divides the free text into a vendor name and a location
// fragment of at most three trailing words.
func splitAnnexureText(text string) (vendor, fragment string) {
	words := strings.Fields(text)
	switch {
	case len(words) == 0:
		return "", ""
	case len(words) == 1:
		return words[0], ""
	case len(words) < 4:
		return words[0], strings.Join(words[1:], " ")
	default:
		return strings.Join(words[:len(words)-3], " "), strings.Join(words[len(words)-3:], " ")
	}
}

var servicePeriodRe = regexp.MustCompile(`(?i)For the Date Range\s*:\s*(\d{4}-\d{2}-\d{2})\s*to\s*(\d{4}-\d{2}-\d{2})`)

func extractServicePeriod(in input, rec Record) Record {
	if m := servicePeriodRe.FindStringSubmatch(in.Text); m != nil {
		rec.ServicePeriod = m[1] + " to " + m[2]
	}
	return rec
}

// locationNoiseWords are generic trailing tokens dropped when shortening a
// site string for display.
var locationNoiseWords = map[string]bool{
	"campus":   true,
	"office":   true,
	"premises": true,
	"building": true,
	"block":    true,
}

var punctRe = regexp.MustCompile(`[^\pL\pN\s]`)

// shortLocation strips punctuation and truncates a raw site string to its
// first one to three tokens, dropping trailing generic words. The short
// form keeps dashboard labels compact.
func shortLocation(raw string) string {
	cleaned := punctRe.ReplaceAllString(raw, " ")
	words := strings.Fields(cleaned)
	if len(words) > 3 {
		words = words[:3]
	}
	for len(words) > 1 && locationNoiseWords[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// composeStallLabel builds the final stall field: vendor name plus the
// abbreviated site, skipping the site when the vendor name already carries
// it. Vendors reuse names across sites, hence the composite label.
func composeStallLabel(in input, rec Record) Record {
	vendor := strings.TrimSpace(rec.Vendor)
	short := shortLocation(rec.RawLocation)
	switch {
	case vendor == "":
		rec.Stall = short
	case short == "":
		rec.Stall = vendor
	case strings.Contains(strings.ToLower(vendor), strings.ToLower(short)):
		rec.Stall = vendor
	default:
		rec.Stall = vendor + " " + short
	}
	return rec
}

// knownSites is the fixed classification precedence: the first keyword
// contained in filename+location wins, regardless of string position.
var knownSites = []struct {
	keyword string
	display string
}{
	{"BROADRIDGE", "Broadridge"},
	{"CGI", "CGI"},
	{"MICROLAND", "Microland"},
	{"TARENT", "Tarent"},
	{"SONATA", "Sonata"},
}

func classifyLocation(in input, rec Record) Record {
	haystack := strings.ToUpper(in.FileName + " " + rec.RawLocation)
	for _, site := range knownSites {
		if strings.Contains(haystack, site.keyword) {
			rec.Location = site.display
			return rec
		}
	}
	if rec.RawLocation != "" {
		rec.Location = rec.RawLocation
		return rec
	}
	rec.Location = "Other"
	return rec
}
