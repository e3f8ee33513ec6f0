package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

func TestValidateTransaction(t *testing.T) {
	valid := domain.Transaction{
		ExternalCode: "QGH7K2L9MN",
		Amount:       decimal.NewFromInt(10),
		Direction:    domain.DirectionReceived,
		OccurredAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name    string
		mutate  func(tx *domain.Transaction)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(tx *domain.Transaction) {},
			wantErr: false,
		},
		{
			name:    "zero amount is allowed",
			mutate:  func(tx *domain.Transaction) { tx.Amount = decimal.Zero },
			wantErr: false,
		},
		{
			name:    "missing code",
			mutate:  func(tx *domain.Transaction) { tx.ExternalCode = "" },
			wantErr: true,
		},
		{
			name:    "negative amount",
			mutate:  func(tx *domain.Transaction) { tx.Amount = decimal.NewFromInt(-1) },
			wantErr: true,
		},
		{
			name:    "missing time",
			mutate:  func(tx *domain.Transaction) { tx.OccurredAt = time.Time{} },
			wantErr: true,
		},
		{
			name:    "description too long",
			mutate:  func(tx *domain.Transaction) { tx.RawDescription = strings.Repeat("x", domain.MaxDescriptionLength+1) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid
			tt.mutate(&tx)
			err := ValidateTransaction(tx)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTransaction() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
