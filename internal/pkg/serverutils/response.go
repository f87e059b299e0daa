package serverutils

// APIResponse is the JSON envelope used by every non-streaming endpoint.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(message string, errType string) APIResponse[map[string]string] {
	resp := APIResponse[map[string]string]{
		Success: false,
		Message: message,
	}
	if errType != "" {
		resp.Data = map[string]string{"error_type": errType}
	}
	return resp
}
