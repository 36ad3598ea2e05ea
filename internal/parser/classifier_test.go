package parser

import "testing"

func TestClassifyLine(t *testing.T) {
	cl, ok := ClassifyLine(`10:31:02 (mlm) OUT: "MATLAB" jsmith@ws-042`)
	if !ok {
		t.Fatal("Expected line to classify")
	}
	if cl.Time != "10:31:02" {
		t.Errorf("Expected time 10:31:02, got %s", cl.Time)
	}
	if cl.Daemon != "mlm" {
		t.Errorf("Expected daemon mlm, got %s", cl.Daemon)
	}
	if cl.Message != `OUT: "MATLAB" jsmith@ws-042` {
		t.Errorf("Unexpected message: %q", cl.Message)
	}
}

func TestClassifyLineSingleDigitHour(t *testing.T) {
	cl, ok := ClassifyLine("9:05:00 (lmgrd) TIMESTAMP 3/14/2024")
	if !ok {
		t.Fatal("Expected line to classify")
	}
	if cl.Time != "9:05:00" {
		t.Errorf("Expected time 9:05:00, got %s", cl.Time)
	}
	if cl.Daemon != "lmgrd" {
		t.Errorf("Expected daemon lmgrd, got %s", cl.Daemon)
	}
}

func TestClassifyLineLeadingWhitespaceAndCR(t *testing.T) {
	cl, ok := ClassifyLine("  10:31:02 (mlm) IN: \"MATLAB\" jsmith@ws-042\r")
	if !ok {
		t.Fatal("Expected line to classify")
	}
	if cl.Raw != `  10:31:02 (mlm) IN: "MATLAB" jsmith@ws-042` {
		t.Errorf("Expected CR stripped from raw, got %q", cl.Raw)
	}
}

func TestClassifyLineDaemonWithDotsAndSpaces(t *testing.T) {
	cl, ok := ClassifyLine("10:31:02 (adskflex v11.18) checkout")
	if !ok {
		t.Fatal("Expected line to classify")
	}
	if cl.Daemon != "adskflex v11.18" {
		t.Errorf("Expected daemon with dot and space, got %q", cl.Daemon)
	}
}

func TestClassifyLineRejectsNonMatching(t *testing.T) {
	for _, line := range []string{
		"",
		"License server started",
		"lmgrd (v11.18) startup",
		"10:31 (mlm) missing seconds",
	} {
		if _, ok := ClassifyLine(line); ok {
			t.Errorf("Expected line %q to be rejected", line)
		}
	}
}

func TestClassifyText(t *testing.T) {
	text := "banner text, no timestamp\n" +
		"10:00:00 (lmgrd) TIMESTAMP 3/14/2024\r\n" +
		"10:00:01 (mlm) OUT: \"MATLAB\" a@h1\n" +
		"garbage\n" +
		"10:00:02 (mlm) IN: \"MATLAB\" a@h1"

	lines := ClassifyText(text)
	if len(lines) != 3 {
		t.Fatalf("Expected 3 classified lines, got %d", len(lines))
	}
	if lines[0].Time != "10:00:00" || lines[2].Time != "10:00:02" {
		t.Error("Expected input order to be preserved")
	}
}
