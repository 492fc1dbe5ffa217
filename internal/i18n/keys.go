// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLogoutSuccess      = "auth.logout_success"

	// Batches
	KeyBatchNotFound        = "batch.not_found"
	KeyBatchInvalidState    = "batch.invalid_state"
	KeyBatchAttachmentError = "batch.attachment_invalid"

	// Users
	KeyUserNotFound = "user.not_found"

	// Generic errors
	KeyValidationInvalid = "validation.invalid"
	KeyAccessDenied      = "access.denied"
	KeyResourceNotFound  = "resource.not_found"
	KeyConflict          = "error.conflict"
	KeyInternalError     = "error.internal"
	KeyRateLimited       = "error.rate_limited"
)
