package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldOperation     = "operation"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
	FieldUserID        = "user_id"
	FieldChatID        = "chat_id"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldDescription   = "description"
	FieldTxCount       = "tx_count"
	FieldProvider      = "provider"
	FieldAttempt       = "attempt"
	FieldAlertCategory = "alert_category"
	FieldFallback      = "fallback"
	FieldQueue         = "queue"
	FieldExchange      = "exchange"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentBot       = "bot"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentInsight   = "insight"
	ComponentProvider  = "provider"
	ComponentAlert     = "alert"
	ComponentWorker    = "worker"
	ComponentScheduler = "scheduler"
	ComponentExport    = "export"
	ComponentParse     = "parse"
	ComponentReport    = "report"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpList     = "list"
	OpParse    = "parse"
	OpGenerate = "generate"
	OpRender   = "render"
	OpNotify   = "notify"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpExport   = "export"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
