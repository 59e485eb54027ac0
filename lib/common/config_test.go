package common

import (
	"strings"
	"testing"
)

func TestClientConfigDefaults(t *testing.T) {
	conf := ClientConfig{Owner: "o", Repo: "r", APIBase: "http://localhost:1234/"}.WithDefaults()

	if conf.APIBase != "http://localhost:1234" {
		t.Errorf("expected trailing slash to be trimmed, got %s", conf.APIBase)
	}
	if conf.TimeoutSecond != 10 {
		t.Errorf("expected default timeout 10, got %d", conf.TimeoutSecond)
	}
	if conf.UserAgent != DefaultUserAgent {
		t.Errorf("expected default user agent, got %s", conf.UserAgent)
	}
	if conf.Repository() != "o/r" {
		t.Errorf("expected o/r, got %s", conf.Repository())
	}
}

func TestClientConfigStringMasksToken(t *testing.T) {
	conf := ClientConfig{Token: "ghp_supersecret1234", Owner: "o", Repo: "r"}.WithDefaults()
	out := conf.String()

	if strings.Contains(out, "supersecret") {
		t.Errorf("token leaked into config string:\n%s", out)
	}
	if !strings.Contains(out, "1234") {
		t.Errorf("expected last four token characters in output:\n%s", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error", "INFO"} {
		if _, err := ParseLogLevel(level); err != nil {
			t.Errorf("level %s should be valid: %v", level, err)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}
