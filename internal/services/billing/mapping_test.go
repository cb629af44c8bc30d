package billing

import (
	"testing"

	"recoup/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMapGatewayStatus(t *testing.T) {
	tests := []struct {
		gatewayStatus string
		want          string
		wantErr       bool
	}{
		{"approved", models.AttemptStatusApproved, false},
		{"declined", models.AttemptStatusDeclined, false},
		{"error", models.AttemptStatusError, false},
		{"pending_async", models.AttemptStatusPending, false},
		{"refunded", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.gatewayStatus, func(t *testing.T) {
			got, err := MapGatewayStatus(tt.gatewayStatus)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownGatewayStatus)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
