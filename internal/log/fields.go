package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldArticleID = "article_id"
	FieldSubject   = "subject"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldCategory  = "category"
	FieldModel     = "model"

	// Query / storage fields
	FieldQueryHash = "query_hash"
	FieldRows      = "rows"
	FieldBlobKey   = "blob_key"
	FieldSizeBytes = "size_bytes"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
)
