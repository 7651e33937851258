package pagerender

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestLoadErrorWrapping(t *testing.T) {
	cause := errors.New("xref table truncated")
	err := &LoadError{Page: 12, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("LoadError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "12") {
		t.Errorf("Error() = %q, should name the page", err.Error())
	}

	var le *LoadError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &le) || le.Page != 12 {
		t.Error("errors.As failed through wrapping")
	}
}

func TestRasterizationErrorWrapping(t *testing.T) {
	cause := errors.New("shading type 7 unsupported")
	err := &RasterizationError{Page: 3, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("RasterizationError does not unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "3") {
		t.Errorf("Error() = %q, should name the page", err.Error())
	}
}

func TestHangTimeoutErrorMessage(t *testing.T) {
	err := &HangTimeoutError{Page: 9, Timeout: 30 * time.Second}
	msg := err.Error()
	if !strings.Contains(msg, "9") || !strings.Contains(msg, "30s") {
		t.Errorf("Error() = %q, should name page and budget", msg)
	}
}

func TestResultSetAccessors(t *testing.T) {
	rs := newResultSet(5, 3)
	if rs.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", rs.Len())
	}

	rs.put(PageOutcome{Index: 6, Page: &RenderedPage{Index: 6}})
	rs.put(PageOutcome{Index: 7, Err: errors.New("broken")})

	out, ok := rs.Outcome(6)
	if !ok || out.Page == nil || out.Err != nil {
		t.Errorf("Outcome(6) = %+v, ok=%v", out, ok)
	}
	if _, ok := rs.Outcome(4); ok {
		t.Error("Outcome(4) should be out of range")
	}
	if _, ok := rs.Outcome(8); ok {
		t.Error("Outcome(8) should be out of range")
	}

	// Pre-filled outcomes keep their page index even when never written.
	out, _ = rs.Outcome(5)
	if out.Index != 5 {
		t.Errorf("unwritten outcome Index = %d, want 5", out.Index)
	}

	errs := rs.Errs()
	if len(errs) != 1 || errs[0].Index != 7 {
		t.Errorf("Errs() = %+v, want one entry for page 7", errs)
	}

	all := rs.Outcomes()
	for i, out := range all {
		if out.Index != 5+i {
			t.Errorf("Outcomes()[%d].Index = %d, want ascending from 5", i, out.Index)
		}
	}
}

func TestFormatHintString(t *testing.T) {
	if FormatRaster.String() != "raster" || FormatExtracted.String() != "extracted" {
		t.Error("FormatHint.String() names wrong")
	}
	if FormatHint(99).String() != "unknown" {
		t.Error("unknown FormatHint should stringify as unknown")
	}
}
