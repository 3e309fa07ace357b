package e

import "fmt"

var (
	// Ошибки транзакций
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки артефактов модели
	ErrArtifactShape       = fmt.Errorf("artifact shape mismatch")
	ErrUnknownArtifactKind = fmt.Errorf("unknown artifact kind")
	ErrArtifactFormat      = fmt.Errorf("unsupported artifact format")
	ErrArtifactSource      = fmt.Errorf("unsupported artifact source")

	// Ошибки инференса
	ErrPredictionShape = fmt.Errorf("prediction shape mismatch")

	// 400 Bad Request
	ErrStatusBadRequest = fmt.Errorf("bad request")
	ErrProductCount     = fmt.Errorf("exactly three products must be compared")
	ErrInvalidPayload   = fmt.Errorf("invalid payload")
	ErrInvalidID        = fmt.Errorf("invalid comparison id")

	// 404 Not Found
	ErrComparisonNotFound = fmt.Errorf("comparison not found")

	// 501 Not Implemented
	ErrFeatureDisabled = fmt.Errorf("feature is disabled")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
