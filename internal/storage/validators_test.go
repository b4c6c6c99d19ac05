package storage

import "testing"

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://example.test/ok",
		"http://example.test:8080/path?q=1",
	}
	for _, raw := range valid {
		if err := ValidateURL(raw); err != nil {
			t.Errorf("expected %q to be valid, got %v", raw, err)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"ftp://example.test",
		"https://",
		"/relative/path",
	}
	for _, raw := range invalid {
		if err := ValidateURL(raw); err == nil {
			t.Errorf("expected %q to be invalid", raw)
		}
	}
}

func TestValidateMonitor(t *testing.T) {
	base := func() *Monitor {
		return &Monitor{
			Name:            "site",
			URL:             "https://example.test",
			Method:          "GET",
			IntervalMinutes: 5,
		}
	}

	t.Run("Valid monitor", func(t *testing.T) {
		if err := ValidateMonitor(base(), 1, 60); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("Empty name", func(t *testing.T) {
		m := base()
		m.Name = "  "
		if err := ValidateMonitor(m, 1, 60); err == nil {
			t.Error("expected error for blank name")
		}
	})

	t.Run("Bad method", func(t *testing.T) {
		m := base()
		m.Method = "PATCH"
		if err := ValidateMonitor(m, 1, 60); err == nil {
			t.Error("expected error for disallowed method")
		}
	})

	t.Run("Interval below minimum", func(t *testing.T) {
		m := base()
		m.IntervalMinutes = 0
		if err := ValidateMonitor(m, 1, 60); err == nil {
			t.Error("expected error for interval below minimum")
		}
	})

	t.Run("Interval above maximum", func(t *testing.T) {
		m := base()
		m.IntervalMinutes = 61
		if err := ValidateMonitor(m, 1, 60); err == nil {
			t.Error("expected error for interval above maximum")
		}
	})
}
