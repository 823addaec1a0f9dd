package worker

import (
	"github.com/spec-kit/guest-inbox/internal/service"
)

// StartDeliveryWorker registers the outbound delivery handlers.
func StartDeliveryWorker(deliveryService *service.DeliveryService) {
	if deliveryService == nil {
		return
	}
	deliveryService.RegisterHandlers()
}
