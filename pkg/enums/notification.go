package enums

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeOrderPlaced   NotificationType = "order_placed"
	NotificationTypeOrderUpdated  NotificationType = "order_updated"
	NotificationTypeOrderCanceled NotificationType = "order_cancelled"
	NotificationTypeNewReview     NotificationType = "new_review"
	NotificationTypeReviewReply   NotificationType = "review_reply"
	NotificationTypeLowStock      NotificationType = "low_stock"
)

var notificationTypes = exact("notification type",
	NotificationTypeOrderPlaced,
	NotificationTypeOrderUpdated,
	NotificationTypeOrderCanceled,
	NotificationTypeNewReview,
	NotificationTypeReviewReply,
	NotificationTypeLowStock,
)

func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }

func ParseNotificationType(value string) (NotificationType, error) {
	return notificationTypes.parse(value)
}
