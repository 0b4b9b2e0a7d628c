package topics

const (
	// Notificações e auditoria
	WagerNotifications = "wager_notifications"
	WagerAudit         = "wager_audit"

	// Resultados de confrontos validados
	ContestResults = "contest_results"

	// DLQs
	ContestResultsDLQ = "contest_results_dlq"
)
