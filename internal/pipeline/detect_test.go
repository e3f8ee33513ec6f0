package pipeline

import (
	"testing"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		fallback domain.Format
		want     domain.Format
	}{
		{
			name:    "statement csv",
			payload: "Receipt No,Completion Time,Details,Paid In\nQGH7K2L9MN,15/01/2024 14:30:00,x,10\n",
			want:    domain.FormatTabular,
		},
		{
			name:    "quoted generic csv header",
			payload: "\"amount\",\"mpesa_code\"\n10,ABC1234567\n",
			want:    domain.FormatTabular,
		},
		{
			name:    "sms",
			payload: "QGH7K2L9MN Confirmed. You have received Ksh100.00 from JOHN",
			want:    domain.FormatMessage,
		},
		{
			name:    "statement text",
			payload: "QGH7K2L9MN 15/01/2024 14:30:00 Customer Transfer 2,500.00 10,000.00\n",
			want:    domain.FormatDocument,
		},
		{
			name:    "unknown falls back to tabular",
			payload: "hello",
			want:    domain.FormatTabular,
		},
		{
			name:     "unknown uses explicit fallback",
			payload:  "hello",
			fallback: domain.FormatMessage,
			want:     domain.FormatMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat([]byte(tt.payload), tt.fallback); got != tt.want {
				t.Errorf("DetectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}
