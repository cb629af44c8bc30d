package billing

import (
	"recoup/internal/gateway"
	"recoup/internal/models"
)

// MapGatewayStatus translates a gateway response status into the stored
// attempt status. The async-pending indicator maps to pending; the
// redirect reference is carried separately and never leaks into the status
// column.
func MapGatewayStatus(gatewayStatus string) (string, error) {
	switch gatewayStatus {
	case gateway.StatusApproved:
		return models.AttemptStatusApproved, nil
	case gateway.StatusDeclined:
		return models.AttemptStatusDeclined, nil
	case gateway.StatusError:
		return models.AttemptStatusError, nil
	case gateway.StatusPendingAsync:
		return models.AttemptStatusPending, nil
	}
	return "", ErrUnknownGatewayStatus
}
