// Package icon provides a few useful [Material Design Icons].
//
// [Material Design Icons]: https://pictogrammers.com/library/mdi/
package icon

// Icon names
const (
	AccountGroup    = "mdi:account-group"
	CalendarClock   = "mdi:calendar-clock"
	Cloud           = "mdi:cloud"
	CloudCheck      = "mdi:cloud-check"
	CloudOff        = "mdi:cloud-off-outline"
	EyeOutline      = "mdi:eye-outline"
	Lock            = "mdi:lock"
	LockOpen        = "mdi:lock-open-variant"
	Robot           = "mdi:robot"
	ShieldAlert     = "mdi:shield-alert"
	ShieldCheck     = "mdi:shield-check"
	SwapVertical    = "mdi:swap-vertical"
	TransferDown    = "mdi:transfer-down"
	Web             = "mdi:web"
	Refresh         = "mdi:refresh"
	ServerNetwork   = "mdi:server-network"
	DatabaseOutline = "mdi:database-outline"
)

// Icon aliases
const (
	Requests  = Web
	Bandwidth = SwapVertical
	Threats   = ShieldAlert
	Visitors  = AccountGroup
	PageViews = EyeOutline
	Window    = CalendarClock
)
