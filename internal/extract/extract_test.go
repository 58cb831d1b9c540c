package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const adviceText = `Payment Advice Raised To
Spice Route
Bangalore HQ Campus
Raised On : 2024-03-15
For the Date Range : 2024-03-01 to 2024-03-15
2024-03-11 Monday Live Counter Spice Route Bangalore HQ 4,500.00 4,500.00
Net Payable Amount : Rs. 12,500.50
`

func TestParseFullAdvice(t *testing.T) {
	rec := Parse(adviceText, "PA-1042.pdf")

	require.Equal(t, 12500.50, rec.Amount)
	require.Equal(t, "2024-03-15", rec.Date)
	require.Equal(t, "2024-03-01 to 2024-03-15", rec.ServicePeriod)
	require.Equal(t, "Spice Route", rec.Vendor)
	require.Equal(t, "Bangalore HQ Campus", rec.RawLocation)
	require.Equal(t, "Spice Route Bangalore HQ", rec.Stall)
	require.Equal(t, "Bangalore HQ Campus", rec.Location)
}

func TestParseAmountVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"plain", "Net Payable Amount : 4500", 4500},
		{"rupee symbol", "net payable amount: ₹ 1,23,456.78", 123456.78},
		{"rs prefix", "Net Payable Amount Rs. 900.00", 900},
		{"no colon", "Net Payable Amount 12,000", 12000},
		{"missing", "Total Due : 4500", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Parse(tt.text, "advice.pdf")
			require.Equal(t, tt.want, rec.Amount)
		})
	}
}

func TestParseDateFallsBackToProcessingDate(t *testing.T) {
	now := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	rec := ParseAt("Net Payable Amount : 100", "advice.pdf", now)
	require.Equal(t, "2024-03-20", rec.Date)
}

func TestParseAnnexureLineFillsMissingVendor(t *testing.T) {
	text := `Annexure
2024-03-11 Monday Live Counter Juice Junction Microland Bellandur Campus 900.00 900.00
Net Payable Amount : 900.00
`
	rec := Parse(text, "advice.pdf")

	require.Equal(t, "Juice Junction", rec.Vendor)
	require.Equal(t, "Microland Bellandur Campus", rec.RawLocation)
	require.Equal(t, "Juice Junction Microland Bellandur", rec.Stall)
	require.Equal(t, "Microland", rec.Location)
}

func TestParseAnnexureDoesNotOverrideHeader(t *testing.T) {
	text := adviceText + "2024-03-12 Tuesday Tuck Shop Chai Point CGI Tower 300.00\n"
	rec := Parse(text, "PA-1042.pdf")

	require.Equal(t, "Spice Route", rec.Vendor)
	require.Equal(t, "Bangalore HQ Campus", rec.RawLocation)
}

func TestStallLabelSkipsRedundantSite(t *testing.T) {
	text := `Payment Advice Raised To
Spice Route Bangalore HQ
Bangalore HQ Campus
Net Payable Amount : 100
`
	rec := Parse(text, "advice.pdf")
	require.Equal(t, "Spice Route Bangalore HQ", rec.Stall)
}

func TestClassifyLocationPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		raw      string
		want     string
	}{
		{"first keyword wins", "BROADRIDGE_CGI_invoice.pdf", "", "Broadridge"},
		{"keyword in location", "advice.pdf", "CGI Tower Bangalore", "CGI"},
		{"case insensitive", "microland_advice.pdf", "", "Microland"},
		{"unknown keeps raw", "advice.pdf", "Manyata Tech Park", "Manyata Tech Park"},
		{"nothing at all", "advice.pdf", "", "Other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := classifyLocation(input{FileName: tt.fileName}, Record{RawLocation: tt.raw})
			require.Equal(t, tt.want, rec.Location)
		})
	}
}

func TestShortLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Bangalore HQ Campus", "Bangalore HQ"},
		{"Manyata Tech Park, Block B", "Manyata Tech Park"},
		{"Bellandur Office", "Bellandur"},
		{"Campus", "Campus"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, shortLocation(tt.raw), "raw %q", tt.raw)
	}
}

func TestSplitAnnexureText(t *testing.T) {
	tests := []struct {
		text     string
		vendor   string
		fragment string
	}{
		{"Juice Junction Microland Bellandur Campus", "Juice Junction", "Microland Bellandur Campus"},
		{"Chai Point CGI", "Chai", "Point CGI"},
		{"Subway", "Subway", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		vendor, fragment := splitAnnexureText(tt.text)
		require.Equal(t, tt.vendor, vendor, "text %q", tt.text)
		require.Equal(t, tt.fragment, fragment, "text %q", tt.text)
	}
}
