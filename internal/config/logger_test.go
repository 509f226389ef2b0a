package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"defaults", "info", "json", false},
		{"debug console", "debug", "console", false},
		{"empty format means json", "warn", "", false},
		{"bad level", "banana", "json", true},
		{"bad format", "info", "xml", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := viper.New()
			v.Set("logging.level", tc.level)
			v.Set("logging.format", tc.format)

			logger, err := NewLogger(v)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			if logger == nil {
				t.Fatal("nil logger")
			}
		})
	}
}
