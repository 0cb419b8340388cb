package log

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldRequestID       = "request_id"
	FieldClientIP        = "client_ip"
	FieldMethod          = "method"
	FieldPath            = "path"
	FieldStatusCode      = "status_code"
	FieldDuration        = "duration_ms"
	FieldUserAgent       = "user_agent"
	FieldSuccess         = "success"
	FieldError           = "error"
	FieldOperation       = "operation"
	FieldApplicationID   = "application_id"
	FieldUserID          = "user_id"
	FieldSectionComplete = "section_complete"
	FieldErrorCount      = "error_count"
	FieldErrorKeys       = "error_keys"
	FieldCostMatch       = "cost_match_percentage"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentFinancial = "financial"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
)

const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpList     = "list"
	OpValidate = "validate"
	OpPublish  = "publish"
	OpAudit    = "audit"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields builds attribute lists for slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithApplication adds the application and user ids.
func (f LogFields) WithApplication(appID, userID string) LogFields {
	f[FieldApplicationID] = appID
	if userID != "" {
		f[FieldUserID] = userID
	}
	return f
}

// WithValidation adds the outcome of a financial validation. Keys are
// logged, messages are not.
func (f LogFields) WithValidation(complete bool, errorKeys []string) LogFields {
	f[FieldSectionComplete] = complete
	f[FieldErrorCount] = len(errorKeys)
	if len(errorKeys) > 0 {
		f[FieldErrorKeys] = errorKeys
	}
	return f
}

// WithCostMatch adds the cost-match percentage when it is defined.
func (f LogFields) WithCostMatch(pct *string) LogFields {
	if pct != nil {
		f[FieldCostMatch] = *pct
	}
	return f
}

func (f LogFields) WithHTTPRequest(method, path, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog key/value pairs.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
