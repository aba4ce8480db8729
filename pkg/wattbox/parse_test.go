package wattbox

import (
	"testing"
)

// statusPage is a trimmed-down WB-800 status page with the device
// summary blocks and three outlet cards, deliberately out of order.
const statusPage = `<html><body>
<div class="grid-block" style="background:#7eb63f">
  <div class="grid-text"><span>119.9V</span></div>
</div>
<div class="grid-block">
  <div class="grid-text">
    <ul class="primary-text"><li>
      <table><tr>
        <td>POWER (WATTS) / CURRENT (AMPS)</td>
        <td>850 W<br>7.4 A</td>
      </tr></table>
    </li></ul>
  </div>
</div>
<div class="grid-grey">
  <div class="grid-block">
    <div class="grid-index-label"><span>3</span></div>
    <ul class="grid-list"><li class="grid-head">Router</li></ul>
    <input id="outlet3" type="checkbox" checked>
    <div style="margin-top:4px"><p>12.5 W</p><p>0.1 A</p></div>
  </div>
  <div class="grid-block">
    <div class="grid-index-label"><span>1</span></div>
    <ul class="grid-list"><li class="grid-head">Modem</li></ul>
    <input id="outlet1" type="checkbox" checked disabled>
    <div style="margin-top:4px"><p>8.0 W</p><p>0.07 A</p></div>
  </div>
  <div class="grid-block">
    <div class="grid-index-label"><span>2</span></div>
    <ul class="grid-list"><li class="grid-head">AV Receiver</li></ul>
    <input id="outlet2" type="checkbox">
    <div style="margin-top:4px"><p>--</p><p>--</p></div>
  </div>
</div>
</body></html>`

func TestParseOutlets(t *testing.T) {
	outlets := ParseOutlets(statusPage)
	if len(outlets) != 3 {
		t.Fatalf("expected 3 outlets, got %d", len(outlets))
	}

	// sorted ascending by number regardless of document order [3, 1, 2]
	for i, want := range []int{1, 2, 3} {
		if outlets[i].Number != want {
			t.Errorf("outlet %d: expected number %d, got %d", i, want, outlets[i].Number)
		}
	}

	if outlets[0].Name != "Modem" || outlets[1].Name != "AV Receiver" || outlets[2].Name != "Router" {
		t.Errorf("unexpected outlet names: %q, %q, %q", outlets[0].Name, outlets[1].Name, outlets[2].Name)
	}
}

func TestParseOutletsCheckedAndDisabledAreIndependent(t *testing.T) {
	outlets := ParseOutlets(statusPage)
	if len(outlets) != 3 {
		t.Fatalf("expected 3 outlets, got %d", len(outlets))
	}

	// outlet 1 carries both markers
	if !outlets[0].IsOn || !outlets[0].IsResetOnly {
		t.Errorf("outlet 1: expected on and reset-only, got on=%v resetOnly=%v", outlets[0].IsOn, outlets[0].IsResetOnly)
	}
	// outlet 2 carries neither
	if outlets[1].IsOn || outlets[1].IsResetOnly {
		t.Errorf("outlet 2: expected off and toggleable, got on=%v resetOnly=%v", outlets[1].IsOn, outlets[1].IsResetOnly)
	}
	// outlet 3 is checked only
	if !outlets[2].IsOn || outlets[2].IsResetOnly {
		t.Errorf("outlet 3: expected on and toggleable, got on=%v resetOnly=%v", outlets[2].IsOn, outlets[2].IsResetOnly)
	}
}

func TestParseOutletsReadings(t *testing.T) {
	outlets := ParseOutlets(statusPage)
	if len(outlets) != 3 {
		t.Fatalf("expected 3 outlets, got %d", len(outlets))
	}

	if outlets[0].Watts == nil || *outlets[0].Watts != 8.0 {
		t.Errorf("outlet 1: expected 8.0 W, got %v", outlets[0].Watts)
	}
	if outlets[0].Amps == nil || *outlets[0].Amps != 0.07 {
		t.Errorf("outlet 1: expected 0.07 A, got %v", outlets[0].Amps)
	}

	// unparseable fragments stay nil, not zero
	if outlets[1].Watts != nil || outlets[1].Amps != nil {
		t.Errorf("outlet 2: expected nil readings, got %v W / %v A", outlets[1].Watts, outlets[1].Amps)
	}
}

func TestParseOutletsSkipsIncompleteBlocks(t *testing.T) {
	page := `<div class="grid-grey">
	  <div class="grid-block">
	    <div class="grid-index-label"><span>1</span></div>
	    <ul class="grid-list"><li class="grid-head">No toggle control</li></ul>
	  </div>
	  <div class="grid-block">
	    <div class="grid-index-label"><span>not-a-number</span></div>
	    <ul class="grid-list"><li class="grid-head">Bad index</li></ul>
	    <input id="outlet9" type="checkbox">
	  </div>
	  <div class="grid-block">
	    <div class="grid-index-label"><span>2</span></div>
	    <ul class="grid-list"><li class="grid-head">Complete</li></ul>
	    <input id="outlet2" type="checkbox" checked>
	  </div>
	</div>`

	outlets := ParseOutlets(page)
	if len(outlets) != 1 {
		t.Fatalf("expected 1 outlet, got %d", len(outlets))
	}
	if outlets[0].Number != 2 || outlets[0].Name != "Complete" || !outlets[0].IsOn {
		t.Errorf("unexpected outlet parsed: %+v", outlets[0])
	}
}

func TestParseOutletsEmptyDocument(t *testing.T) {
	if outlets := ParseOutlets(""); len(outlets) != 0 {
		t.Errorf("expected no outlets from empty document, got %d", len(outlets))
	}
	if outlets := ParseOutlets("<p>not a status page</p>"); len(outlets) != 0 {
		t.Errorf("expected no outlets from unrelated document, got %d", len(outlets))
	}
}

func TestParseMetrics(t *testing.T) {
	metrics := ParseMetrics(statusPage)
	if metrics.Voltage == nil || *metrics.Voltage != 119.9 {
		t.Errorf("expected voltage 119.9, got %v", metrics.Voltage)
	}
	if metrics.TotalWatts == nil || *metrics.TotalWatts != 850 {
		t.Errorf("expected total watts 850, got %v", metrics.TotalWatts)
	}
	if metrics.TotalAmps == nil || *metrics.TotalAmps != 7.4 {
		t.Errorf("expected total amps 7.4, got %v", metrics.TotalAmps)
	}
}

func TestParseMetricsMissingLabelCell(t *testing.T) {
	page := `<div class="grid-block" style="background:#7eb63f">
	  <div class="grid-text"><span>120.1V</span></div>
	</div>`

	metrics := ParseMetrics(page)
	if metrics.TotalWatts != nil || metrics.TotalAmps != nil {
		t.Errorf("expected nil totals without POWER/CURRENT cell, got %v / %v", metrics.TotalWatts, metrics.TotalAmps)
	}
	if metrics.Voltage == nil || *metrics.Voltage != 120.1 {
		t.Errorf("expected voltage 120.1, got %v", metrics.Voltage)
	}
}

func TestParseMetricsUnparseableFragments(t *testing.T) {
	page := `<div class="grid-block" style="background:#7eb63f">
	  <div class="grid-text"><span>offlineV</span></div>
	</div>
	<div class="grid-block">
	  <div class="grid-text">
	    <ul class="primary-text"><li>
	      <table><tr>
	        <td>POWER (WATTS) / CURRENT (AMPS)</td>
	        <td>-- W<br>7.4 A</td>
	      </tr></table>
	    </li></ul>
	  </div>
	</div>`

	metrics := ParseMetrics(page)
	if metrics.Voltage != nil {
		t.Errorf("expected nil voltage for non-numeric payload, got %v", metrics.Voltage)
	}
	if metrics.TotalWatts != nil {
		t.Errorf("expected nil total watts for non-numeric payload, got %v", metrics.TotalWatts)
	}
	if metrics.TotalAmps == nil || *metrics.TotalAmps != 7.4 {
		t.Errorf("expected total amps 7.4, got %v", metrics.TotalAmps)
	}
}

func TestParseMetricsEmptyDocument(t *testing.T) {
	metrics := ParseMetrics("")
	if metrics.Voltage != nil || metrics.TotalWatts != nil || metrics.TotalAmps != nil {
		t.Errorf("expected all-nil metrics from empty document, got %+v", metrics)
	}
}
