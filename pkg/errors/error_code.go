package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Lexical errors (100-199)
	ErrCodeUnexpectedCharacter ErrorCode = 100
	ErrCodeUnterminatedString  ErrorCode = 101
	ErrCodeInvalidNumber       ErrorCode = 102

	// Syntax errors (200-299)
	ErrCodeUnexpectedToken     ErrorCode = 200
	ErrCodeUnexpectedEnd       ErrorCode = 201
	ErrCodeDuplicateBlock      ErrorCode = 202
	ErrCodeMissingBlock        ErrorCode = 203
	ErrCodeMissingTicker       ErrorCode = 204
	ErrCodeTrailingComma       ErrorCode = 205
	ErrCodeDuplicateStrategy   ErrorCode = 206
	ErrCodeInvalidActionClause ErrorCode = 207

	// Semantic and type errors (300-399)
	ErrCodeUnsupportedOperands   ErrorCode = 300
	ErrCodeUnknownOperator       ErrorCode = 301
	ErrCodeFunctionNotFound      ErrorCode = 302
	ErrCodeFunctionAlreadyExists ErrorCode = 303
	ErrCodeVariableNotFound      ErrorCode = 304
	ErrCodeInvalidArgument       ErrorCode = 305
	ErrCodeInvalidPeriod         ErrorCode = 306
	ErrCodeNotEvaluable          ErrorCode = 307
	ErrCodeInvalidType           ErrorCode = 308

	// Validation errors (400-499)
	ErrCodeMissingConfigField   ErrorCode = 400
	ErrCodeInvalidConfigValue   ErrorCode = 401
	ErrCodeInvalidConfigType    ErrorCode = 402
	ErrCodeInvalidConfiguration ErrorCode = 404

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidTimespan       ErrorCode = 703
	ErrCodeInvalidProvider       ErrorCode = 704
	ErrCodeDataNotFound          ErrorCode = 705
	ErrCodeQueryFailed           ErrorCode = 706
	ErrCodeInvalidDataRequest    ErrorCode = 707

	// Queue and submission errors (800-899)
	ErrCodeQueuePublishFailed ErrorCode = 800
	ErrCodeQueueConsumeFailed ErrorCode = 801
	ErrCodeInvalidJob         ErrorCode = 802
	ErrCodeInvalidRequest     ErrorCode = 803
)

// Category groups error codes by the pipeline stage that raises them.
type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryLexical    Category = "lexical"
	CategorySyntax     Category = "syntax"
	CategorySemantic   Category = "semantic"
	CategoryValidation Category = "validation"
	CategoryMarketData Category = "marketdata"
	CategoryQueue      Category = "queue"
)

// Category returns the category the code belongs to.
func (c ErrorCode) Category() Category {
	switch {
	case c >= 100 && c < 200:
		return CategoryLexical
	case c >= 200 && c < 300:
		return CategorySyntax
	case c >= 300 && c < 400:
		return CategorySemantic
	case c >= 400 && c < 500:
		return CategoryValidation
	case c >= 700 && c < 800:
		return CategoryMarketData
	case c >= 800 && c < 900:
		return CategoryQueue
	default:
		return CategoryGeneral
	}
}
