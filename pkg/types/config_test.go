package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "zero config uses defaults",
			config:  Config{},
			wantErr: nil,
		},
		{
			name:    "unknown log level returns ErrLogLevelUnknown",
			config:  Config{LogLevel: "verbose"},
			wantErr: ErrLogLevelUnknown,
		},
		{
			name:    "log level is case-insensitive",
			config:  Config{LogLevel: "DEBUG"},
			wantErr: nil,
		},
		{
			name:    "absolute external dir returns ErrExternalDirInvalid",
			config:  Config{ExternalDir: "/var/data"},
			wantErr: ErrExternalDirInvalid,
		},
		{
			name:    "escaping external dir returns ErrExternalDirInvalid",
			config:  Config{ExternalDir: "../data"},
			wantErr: ErrExternalDirInvalid,
		},
		{
			name:    "nested external dir is valid",
			config:  Config{ExternalDir: "payload/raw"},
			wantErr: nil,
		},
		{
			name:    "index field without expression returns ErrIndexFieldInvalid",
			config:  Config{IndexFields: map[string]string{"machine": ""}},
			wantErr: ErrIndexFieldInvalid,
		},
		{
			name:    "index field with expression is valid",
			config:  Config{IndexFields: map[string]string{"machine": "$.machine.name"}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
