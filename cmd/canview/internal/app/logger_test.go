package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"warning", logrus.WarnLevel},
		{"err", logrus.ErrorLevel},
	}
	for _, tc := range cases {
		got, err := parseLevel(tc.input)
		if err != nil {
			t.Fatalf("for %q unexpected error %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("for %q expected %v got %v", tc.input, tc.want, got)
		}
	}
	if _, err := parseLevel("trace"); err == nil {
		t.Fatalf("expected error for unsupported level")
	}
}

func TestLoggerLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("newLogger returned error: %v", err)
	}
	logger.Infof("hidden")
	logger.Warnf("shown %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message logged at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown 1"`) || !strings.Contains(out, `"level":"warning"`) {
		t.Fatalf("unexpected json log output %s", out)
	}

	if _, err := newLogger(&buf, "info", "yaml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
