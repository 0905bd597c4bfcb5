package models

// Real-time event names pushed to every connected websocket client.
const (
	EventUsersOnline = "metrics:users"
	EventSystemStats = "metrics:system"
	EventUserLogin   = "user:login"
	EventUserLogout  = "user:logout"
	EventTaskCreated = "task:created"
)

// OnlineUsersEvent carries the live connected-client count.
type OnlineUsersEvent struct {
	Count int `json:"count"`
}

// UserLoginEvent is published after a successful registration or login.
type UserLoginEvent struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// UserLogoutEvent is published when a signed-in user logs out.
type UserLogoutEvent struct {
	Username string `json:"username"`
}

// TaskCreatedEvent is published for every new task.
type TaskCreatedEvent struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	OwnerID  string  `json:"ownerId"`
	Username string  `json:"username"`
	DueDate  *string `json:"dueDate,omitempty"`
}

// SystemStats is a host and process sample broadcast as metrics:system.
type SystemStats struct {
	CPUPercent     float64 `json:"cpuPercent"`
	MemUsedPercent float64 `json:"memUsedPercent"`
	MemUsedBytes   uint64  `json:"memUsedBytes"`
	MemTotalBytes  uint64  `json:"memTotalBytes"`
	Goroutines     int     `json:"goroutines"`
	OnlineUsers    int     `json:"onlineUsers"`
	SampledAt      string  `json:"sampledAt"`
}
