package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientKey  = "api_key_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOwnerID    = "owner_id"
	FieldEntryID    = "entry_id"
	FieldBudgetID   = "budget_id"
	FieldCategoryID = "category_id"
	FieldKind       = "kind"
	FieldAmount     = "amount"
	FieldMonth      = "month"
	FieldYear       = "year"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentBudget  = "budget"
	ComponentReport  = "report"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentAuth    = "auth"
)
