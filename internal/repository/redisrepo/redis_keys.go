package redisrepo

import "fmt"

const (
	USER_NOTIFICATIONS         = "user:%s-notifications:%d"        // <userID>:<version>
	USER_NOTIFICATIONS_VERSION = "user:%s-notifications-version" // <userID>
	SWEEP_LOCK                 = "lock:notifications:%s"          // <job name>
)

func UserNotificationsKey(userID string, version int64) string {
	return fmt.Sprintf(USER_NOTIFICATIONS, userID, version)
}

func UserNotificationsVersionKey(userID string) string {
	return fmt.Sprintf(USER_NOTIFICATIONS_VERSION, userID)
}

func SweepLockKey(job string) string {
	return fmt.Sprintf(SWEEP_LOCK, job)
}
