package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "TEAM_POINTS_MODE", "COMMISSION_ON_COMPLETE", "RECOMMENDATION_CACHE_TTL", "BLOCKED_PHONES", "JWT_ACCESS_EXPIRY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" || cfg.TeamPointsMode != TeamPointsCumulative || cfg.CommissionOnComplete {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RecommendationCacheTTL != time.Hour || cfg.JWTAccessExpiry != 24*time.Hour {
		t.Errorf("ttls = %s, %s", cfg.RecommendationCacheTTL, cfg.JWTAccessExpiry)
	}
	if cfg.BlockedPhones != nil {
		t.Errorf("blocked phones = %v, want none", cfg.BlockedPhones)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TEAM_POINTS_MODE", "delta")
	t.Setenv("COMMISSION_ON_COMPLETE", "true")
	t.Setenv("BLOCKED_PHONES", " 255700000001, ,0700000002 ")
	t.Setenv("REGISTRATION_RATE_PER_HOUR", "not-a-number")
	t.Setenv("RECOMMENDATION_CACHE_TTL", "30m")

	cfg := Load()
	if cfg.TeamPointsMode != TeamPointsDelta || !cfg.CommissionOnComplete {
		t.Errorf("mode = %s, commission on complete = %v", cfg.TeamPointsMode, cfg.CommissionOnComplete)
	}
	if len(cfg.BlockedPhones) != 2 || cfg.BlockedPhones[0] != "255700000001" || cfg.BlockedPhones[1] != "0700000002" {
		t.Errorf("blocked phones = %q", cfg.BlockedPhones)
	}
	if cfg.RegistrationRatePerHour != 5 {
		t.Errorf("registration rate = %d, want default on bad input", cfg.RegistrationRatePerHour)
	}
	if cfg.RecommendationCacheTTL != 30*time.Minute {
		t.Errorf("cache ttl = %s", cfg.RecommendationCacheTTL)
	}
	if len(cfg.Warnings) != 1 || !strings.Contains(cfg.Warnings[0], "REGISTRATION_RATE_PER_HOUR") {
		t.Errorf("warnings = %q, want one for the bad rate", cfg.Warnings)
	}
}

func TestLoad_UnknownTeamPointsMode(t *testing.T) {
	t.Setenv("TEAM_POINTS_MODE", "exponential")

	cfg := Load()
	if cfg.TeamPointsMode != TeamPointsCumulative {
		t.Errorf("mode = %s, want fallback to %s", cfg.TeamPointsMode, TeamPointsCumulative)
	}
	if len(cfg.Warnings) != 1 || !strings.Contains(cfg.Warnings[0], "exponential") {
		t.Errorf("warnings = %q", cfg.Warnings)
	}
}

func TestLoad_MalformedValuesWarn(t *testing.T) {
	t.Setenv("TEAM_POINTS_MODE", "")
	t.Setenv("JWT_ACCESS_EXPIRY", "a day")
	t.Setenv("COMMISSION_ON_COMPLETE", "sometimes")
	t.Setenv("SMTP_PORT", "smtp")

	cfg := Load()
	if cfg.JWTAccessExpiry != 24*time.Hour || cfg.CommissionOnComplete || cfg.SMTPPort != 2525 {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	for _, key := range []string{"JWT_ACCESS_EXPIRY", "COMMISSION_ON_COMPLETE", "SMTP_PORT"} {
		found := false
		for _, w := range cfg.Warnings {
			found = found || strings.Contains(w, key)
		}
		if !found {
			t.Errorf("no warning for %s in %q", key, cfg.Warnings)
		}
	}
}
