package persistence

import "testing"

func TestSettingsRoundTrip(t *testing.T) {
	withTempConfigDir(t)

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.LastWorkbookPath != "" {
		t.Fatalf("expected empty settings on first load, got %+v", s)
	}

	s.LastWorkbookPath = "/tmp/demo.apicize"
	s.DefaultTimeoutMs = 5000
	if err := SaveSettings(s); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	reloaded, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings (reload): %v", err)
	}
	if reloaded.LastWorkbookPath != s.LastWorkbookPath || reloaded.DefaultTimeoutMs != s.DefaultTimeoutMs {
		t.Fatalf("got %+v, want %+v", reloaded, s)
	}
}
