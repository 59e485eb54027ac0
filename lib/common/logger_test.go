package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestParseLevels(t *testing.T) {
	tests := []struct {
		spec      string
		def       logger.LogLevel
		overrides map[string]logger.LogLevel
		wantErr   bool
	}{
		{spec: "", def: logger.INFO},
		{spec: "debug", def: logger.DEBUG},
		{spec: "warn,remote=debug", def: logger.WARNING, overrides: map[string]logger.LogLevel{"remote": logger.DEBUG}},
		{spec: " error , api = debug , cache=warn ", def: logger.ERROR, overrides: map[string]logger.LogLevel{"api": logger.DEBUG, "cache": logger.WARNING}},
		{spec: "syncer=error", def: logger.INFO, overrides: map[string]logger.LogLevel{"syncer": logger.ERROR}},
		{spec: "loud", wantErr: true},
		{spec: "remote=loud", wantErr: true},
		{spec: "nosuchlogger=debug", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			levels, err := ParseLevels(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if levels.Default != tt.def {
				t.Errorf("default = %v, want %v", levels.Default, tt.def)
			}
			for _, name := range LoggerNames {
				want, ok := tt.overrides[name]
				if !ok {
					want = tt.def
				}
				if got := levels.Of(name); got != want {
					t.Errorf("level of %s = %v, want %v", name, got, want)
				}
			}
		})
	}
}

func TestLevelNameRoundTrip(t *testing.T) {
	for _, lvl := range []logger.LogLevel{logger.DEBUG, logger.INFO, logger.WARNING, logger.ERROR} {
		parsed, err := ParseLogLevel(LevelName(lvl))
		if err != nil || parsed != lvl {
			t.Errorf("LevelName(%v) = %q parses to %v (%v)", lvl, LevelName(lvl), parsed, err)
		}
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	l := newDocsLogger("cache", &buf, 0)

	t.Run("FiltersBelowLevel", func(t *testing.T) {
		buf.Reset()
		l.SetLevel(logger.WARNING)
		l.Debugf("hidden %d", 1)
		l.Infof("hidden %d", 2)
		l.Warningf("shown %d", 3)
		l.Errorf("shown %d", 4)

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Errorf("messages below warning were written:\n%s", out)
		}
		if strings.Count(out, "shown") != 2 {
			t.Errorf("expected two lines, got:\n%s", out)
		}
	})

	t.Run("Format", func(t *testing.T) {
		buf.Reset()
		l.SetLevel(logger.DEBUG)
		l.Infof("loaded %s", "data/polls.json")

		want := "INFO  | cache    | loaded data/polls.json\n"
		if got := buf.String(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("PanicAlwaysLogs", func(t *testing.T) {
		buf.Reset()
		l.SetLevel(logger.ERROR)
		defer func() {
			if r := recover(); r != "boom 7" {
				t.Errorf("recovered %v, want boom 7", r)
			}
			if !strings.Contains(buf.String(), "PANIC | cache") {
				t.Errorf("panic was not logged:\n%s", buf.String())
			}
		}()
		l.Panicf("boom %d", 7)
	})
}

func TestInitLoggersTwice(t *testing.T) {
	if _, err := InitLoggers("info"); err != nil {
		t.Fatalf("first init: %v", err)
	}
	levels, err := InitLoggers("error,api=debug")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if levels.Of("api") != logger.DEBUG || levels.Of("docstore") != logger.ERROR {
		t.Errorf("unexpected levels %+v", levels)
	}
	if _, err := InitLoggers("api=chatty"); err == nil {
		t.Error("expected error for invalid spec")
	}
}
