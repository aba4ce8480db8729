package wattbox

import (
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParseOutlets extracts the outlet cards from a WB-800 status page. It is
// a pure function over the HTML string and never fails: a card missing its
// index label, name label, or toggle input is skipped, and unparseable
// watt/amp fragments leave those fields nil. The result is sorted
// ascending by outlet number regardless of document order.
func ParseOutlets(page string) []OutletInfo {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var outlets []OutletInfo
	doc.Find("div.grid-grey > div.grid-block").Each(func(_ int, block *goquery.Selection) {
		numberEl := block.Find(".grid-index-label > span").First()
		nameEl := block.Find("ul.grid-list > li.grid-head").First()
		toggle := block.Find("input[id^='outlet']").First()
		if numberEl.Length() == 0 || nameEl.Length() == 0 || toggle.Length() == 0 {
			return
		}

		number, err := strconv.Atoi(strings.TrimSpace(numberEl.Text()))
		if err != nil {
			return
		}

		// The checked and disabled markers are independent: an outlet
		// can be powered on yet locked to reset-only control.
		_, isOn := toggle.Attr("checked")
		_, isResetOnly := toggle.Attr("disabled")

		outlet := OutletInfo{
			Number:      number,
			Name:        strings.TrimSpace(nameEl.Text()),
			IsOn:        isOn,
			IsResetOnly: isResetOnly,
		}

		// Per-outlet readings are two adjacent <p> fragments below the
		// card, watts first then amps.
		stats := block.Find("div[style*='margin-top'] p")
		if stats.Length() >= 2 {
			outlet.Watts = parseUnit(stats.Eq(0).Text(), "W")
			outlet.Amps = parseUnit(stats.Eq(1).Text(), "A")
		}

		outlets = append(outlets, outlet)
	})

	sort.Slice(outlets, func(i, j int) bool {
		return outlets[i].Number < outlets[j].Number
	})
	return outlets
}

// ParseMetrics extracts the aggregate voltage/power/current readings from
// a WB-800 status page. Like ParseOutlets it never fails; fields the page
// omits (or renders unparseably) come back nil, and the caller decides
// whether to derive totals from the per-outlet readings instead.
func ParseMetrics(page string) DeviceMetrics {
	var metrics DeviceMetrics
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return metrics
	}

	// The total power/current pair lives in a table cell labeled with
	// both POWER and CURRENT; its sibling cell carries the two readings
	// on separate lines, watts first.
	doc.Find("div.grid-block div.grid-text ul.primary-text li table td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		text := td.Text()
		if !strings.Contains(text, "POWER") || !strings.Contains(text, "CURRENT") {
			return true
		}
		value := td.NextAllFiltered("td").First()
		if value.Length() == 0 {
			value = td.Parent().NextAllFiltered("td").First()
		}
		if lines := textLines(value); len(lines) >= 2 {
			metrics.TotalWatts = parseUnit(lines[0], "W")
			metrics.TotalAmps = parseUnit(lines[1], "A")
		}
		return false
	})

	// Voltage is the first "V"-suffixed fragment in a colored block.
	doc.Find("div.grid-block[style*='background'] span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		text := strings.TrimSpace(span.Text())
		if !strings.HasSuffix(text, "V") {
			return true
		}
		metrics.Voltage = parseUnit(text, "V")
		return false
	})

	return metrics
}

// parseUnit strips a unit suffix like "W" and parses the remainder as a
// float. A fragment that does not parse yields nil rather than zero, so
// missing data stays distinguishable from a real zero reading.
func parseUnit(text, unit string) *float64 {
	trimmed := strings.TrimSpace(strings.ReplaceAll(text, unit, ""))
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	return &value
}

// textLines collects the non-empty text fragments under a selection in
// document order, one entry per text node. Firmware pages separate the
// power and current readings with <br>, which plain Text() would glue
// together.
func textLines(sel *goquery.Selection) []string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				lines = append(lines, s)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return lines
}
