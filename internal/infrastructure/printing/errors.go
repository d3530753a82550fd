package printing

// RenderError represents an error while assembling or rendering a document
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout       = "RENDER_TIMEOUT"
	ErrCodeRenderFailed        = "RENDER_FAILED"
	ErrCodeInvalidHTML         = "INVALID_HTML"
	ErrCodeStorageFailed       = "STORAGE_FAILED"
	ErrCodeMissingNumber       = "MISSING_NUMBER"
	ErrCodeArtifactUnreachable = "ARTIFACT_UNREACHABLE"
	ErrCodeEphemeralArtifact   = "EPHEMERAL_ARTIFACT"
	ErrCodeSurfaceUnavailable  = "SURFACE_UNAVAILABLE"
	ErrCodeLayoutNotFound      = "LAYOUT_NOT_FOUND"
)

// EphemeralArtifactMessage is shown when a session-local artifact is handed to the renderer
const EphemeralArtifactMessage = "artifact reference is session-local and cannot be rendered; regenerate the document"

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
