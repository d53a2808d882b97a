package rabbitmq

const (
	CREATE_NOTIFICATION_QUEUE = "notifications.create"
	FOLLOWS_QUEUE             = "follows"
)
