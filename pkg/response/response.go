package response

// Generic response envelope
type APIResponseCode int

const (
	APIResponseCodeOK                 APIResponseCode = 0
	APIResponseCodeBadRequest         APIResponseCode = 40000
	APIResponseCodeUnauthenticated    APIResponseCode = 40100
	APIResponseCodeForbidden          APIResponseCode = 40300
	APIResponseCodeNotFound           APIResponseCode = 40400
	APIResponseCodeConflict           APIResponseCode = 40900
	APIResponseCodeTooManyRequests    APIResponseCode = 42900
	APIResponseCodeError              APIResponseCode = 50000
	APIResponseCodeServiceUnavailable APIResponseCode = 50300
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:                 "ok",
	APIResponseCodeBadRequest:         "bad request",
	APIResponseCodeUnauthenticated:    "unauthenticated",
	APIResponseCodeForbidden:          "forbidden",
	APIResponseCodeNotFound:           "not found",
	APIResponseCodeConflict:           "conflict",
	APIResponseCodeTooManyRequests:    "too many requests",
	APIResponseCodeError:              "unexpected error",
	APIResponseCodeServiceUnavailable: "service unavailable",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}

// ErrorMsg returns an error response whose message is msg instead of the code default.
func ErrorMsg(code APIResponseCode, msg string) *APIResponse[any] {
	if msg == "" {
		msg = codeToMsg[code]
	}
	return &APIResponse[any]{Code: code, Message: msg}
}

// CodeForHTTPStatus derives the envelope code from an HTTP status.
func CodeForHTTPStatus(status int) APIResponseCode {
	switch status {
	case 200, 201, 202, 204:
		return APIResponseCodeOK
	case 400:
		return APIResponseCodeBadRequest
	case 401:
		return APIResponseCodeUnauthenticated
	case 403:
		return APIResponseCodeForbidden
	case 404:
		return APIResponseCodeNotFound
	case 409:
		return APIResponseCodeConflict
	case 429:
		return APIResponseCodeTooManyRequests
	case 503:
		return APIResponseCodeServiceUnavailable
	default:
		return APIResponseCodeError
	}
}
