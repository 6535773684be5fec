package limits

import (
	"errors"
	"testing"

	"github.com/NERVsystems/takbridge/errs"
)

func TestConservativeDefaultsValidate(t *testing.T) {
	if err := ConservativeDefaults().Validate(); err != nil {
		t.Fatalf("conservative defaults should validate cleanly: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := ConservativeDefaults()

	tests := []struct {
		name    string
		mutate  func(Limits) Limits
		wantErr errs.Kind
	}{
		{
			name:    "zero frame bytes",
			mutate:  func(l Limits) Limits { l.MaxFrameBytes = 0; return l },
			wantErr: errs.KindZeroField,
		},
		{
			name:    "xml scan exceeds frame",
			mutate:  func(l Limits) Limits { l.MaxXMLScanBytes = l.MaxFrameBytes + 1; return l },
			wantErr: errs.KindXMLScanExceedsFrame,
		},
		{
			name:    "protobuf exceeds frame",
			mutate:  func(l Limits) Limits { l.MaxProtobufBytes = l.MaxFrameBytes + 1; return l },
			wantErr: errs.KindProtobufExceedsFrame,
		},
		{
			name:    "queue bytes below frame",
			mutate:  func(l Limits) Limits { l.MaxQueueBytes = l.MaxFrameBytes - 1; return l },
			wantErr: errs.KindQueueBytesBelowFrame,
		},
		{
			name: "queue messages exceed queue bytes",
			mutate: func(l Limits) Limits {
				l.MaxQueueMessages = l.MaxQueueBytes + 1
				return l
			},
			wantErr: errs.KindQueueMessagesExceedQueueBytes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mutate(base).Validate()
			var e *errs.Error
			if !errors.As(got, &e) {
				t.Fatalf("expected *errs.Error, got %v", got)
			}
			if e.Kind != tt.wantErr {
				t.Fatalf("expected kind %s, got %s", tt.wantErr, e.Kind)
			}
		})
	}
}

func TestLessOrEqual(t *testing.T) {
	small := ConservativeDefaults()
	big := ConservativeDefaults()
	big.MaxFrameBytes *= 2
	big.MaxQueueBytes *= 2

	if !small.LessOrEqual(big) {
		t.Fatalf("expected small <= big")
	}
	if big.LessOrEqual(small) {
		t.Fatalf("expected big > small on at least one field")
	}
}
