package errors

// Error codes returned in the "error" field of every failed response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these to localized text.

const (
	// ==================== AUTH_ ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"

	// ==================== AUTHZ_ ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"

	// ==================== VALIDATION_ ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"

	// ==================== RESOURCE_ ====================
	ResourceNotFound = "RESOURCE_NOT_FOUND"
	ResourceConflict = "RESOURCE_CONFLICT"

	// ==================== CATALOG_ ====================
	CatalogSKUInUse          = "CATALOG_SKU_IN_USE"
	CatalogReplacePartial    = "CATALOG_REPLACE_PARTIAL_FAILURE"
	CatalogScopeBusy         = "CATALOG_SCOPE_BUSY"
	CatalogVariantNotInScope = "CATALOG_VARIANT_NOT_IN_PRODUCT"

	// ==================== ORDER_ ====================
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"

	// ==================== UPLOAD_ ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== INTERNAL_ ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalUnavailable   = "INTERNAL_TEMPORARILY_UNAVAILABLE"
)
