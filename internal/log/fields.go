package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldKey         = "key"
	FieldID          = "id"
	FieldKind        = "kind"
	FieldCount       = "count"
	FieldBytes       = "bytes"
	FieldMIMEType    = "mime_type"
	FieldFileName    = "file_name"
	FieldModel       = "model"
	FieldSchema      = "schema"
	FieldRawResponse = "raw_response"
	FieldTaxType     = "tax_type"
	FieldDueDate     = "due_date"
	FieldAmount      = "amount"
	FieldBackend     = "backend"
	FieldSheet       = "sheet"
	FieldMessageID   = "message_id"
	FieldDuration    = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStorage   = "storage"
	ComponentGateway   = "gateway"
	ComponentAssistant = "assistant"
	ComponentTax       = "tax"
	ComponentAMQP      = "amqp"
	ComponentSheets    = "sheets"
	ComponentBackend   = "backend"
	ComponentCLI       = "cli"
	ComponentWorker    = "worker"
)

// Operations defines standard operation names
const (
	OpRead              = "read"
	OpWrite             = "write"
	OpDecode            = "decode"
	OpProcessInvoice    = "process_invoice"
	OpCategorizeExpense = "categorize_expense"
	OpReconcile         = "reconcile_statement"
	OpReport            = "generate_report"
	OpPublish           = "publish"
	OpExport            = "export"
	OpStartup           = "startup"
	OpShutdown          = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypePersistence   = "persistence_error"
	ErrorTypeGateway       = "gateway_error"
	ErrorTypeParse         = "parse_error"
	ErrorTypeNetwork       = "network_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds error type field
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithKey adds the storage key field
func (f LogFields) WithKey(key string) LogFields {
	f[FieldKey] = key
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
