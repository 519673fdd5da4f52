package enums

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationTypeMention     NotificationType = "mention"
	NotificationTypeMessage     NotificationType = "message"
	NotificationTypeCall        NotificationType = "call"
	NotificationTypeIntegration NotificationType = "integration"
)
