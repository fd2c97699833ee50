package controllers

// ValidationError covers missing or malformed client input; maps to 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigurationError covers server-side misconfiguration such as a missing
// API key; maps to 500.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}
