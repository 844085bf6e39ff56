package notifications

import "github.com/outstaffer/content-finder/internal/models"

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	SendDigest(digest *models.Digest) error
}
