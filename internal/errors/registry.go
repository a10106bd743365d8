package errors

import "net/http"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Status   int
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Routing Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryRouting,
		Status:   http.StatusNotFound,
		Message:  "Unknown route",
		Detail:   "No view or consumer is registered under this route name. Routes exist only after a template, binding or consumer registers them.",
	},
	"E002": {
		Category: CategoryRouting,
		Status:   http.StatusBadRequest,
		Message:  "Template used as route host",
		Detail:   "A <template> element can provide a route's view but can not display one. Put route-active or a route attribute on a regular element.",
	},

	// ============================================
	// Protocol Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryProtocol,
		Status:   http.StatusBadRequest,
		Message:  "WebSocket upgrade failed",
		Detail:   "The live endpoint only accepts WebSocket upgrade requests from allowed origins.",
	},
	"E041": {
		Category: CategoryProtocol,
		Status:   http.StatusBadRequest,
		Message:  "Malformed client message",
		Detail:   "A message from the browser could not be decoded as a click, hash or input event.",
	},
	"E042": {
		Category: CategoryProtocol,
		Status:   http.StatusGone,
		Message:  "Unknown node",
		Detail:   "The client referenced a node id that no longer exists in the session document.",
	},
	"E043": {
		Category: CategoryProtocol,
		Status:   http.StatusServiceUnavailable,
		Message:  "Too many live sessions",
		Detail:   "The server reached its live session limit. The page still works without live updates.",
	},

	// ============================================
	// Storage Errors (E080-E099)
	// ============================================

	"E080": {
		Category: CategoryStorage,
		Status:   http.StatusInternalServerError,
		Message:  "Database unavailable",
		Detail:   "The SQLite database could not be opened or migrated.",
	},
	"E081": {
		Category: CategoryStorage,
		Status:   http.StatusNotFound,
		Message:  "Writ not found",
		Detail:   "No published writ has this slug.",
	},
	"E082": {
		Category: CategoryStorage,
		Status:   http.StatusBadRequest,
		Message:  "Invalid writ",
		Detail:   "A writ needs a title, markdown, at least one tag and an author who is a registered user.",
	},
	"E083": {
		Category: CategoryStorage,
		Status:   http.StatusInternalServerError,
		Message:  "Upload storage failed",
		Detail:   "The file could not be written to the configured upload store.",
	},
	"E084": {
		Category: CategoryStorage,
		Status:   http.StatusNotFound,
		Message:  "Upload not found",
		Detail:   "No uploaded file has this key.",
	},

	// ============================================
	// Auth Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryAuth,
		Status:   http.StatusUnauthorized,
		Message:  "Unauthorized",
		Detail:   "This action requires a logged-in user.",
	},
	"E101": {
		Category: CategoryAuth,
		Status:   http.StatusForbidden,
		Message:  "Forbidden",
		Detail:   "Your account lacks the role this action requires.",
	},
	"E102": {
		Category: CategoryAuth,
		Status:   http.StatusTooManyRequests,
		Message:  "Too many auth requests",
		Detail:   "Too many login emails were sent to this address. Wait a few minutes and try again.",
	},
	"E103": {
		Category: CategoryValidation,
		Status:   http.StatusBadRequest,
		Message:  "Invalid username or email",
		Detail:   "Usernames are 3 to 50 letters, digits, dots, underscores or hyphens.",
	},
	"E104": {
		Category: CategoryValidation,
		Status:   http.StatusConflict,
		Message:  "Username taken",
		Detail:   "Another account already uses this username.",
	},
	"E105": {
		Category: CategoryValidation,
		Status:   http.StatusBadRequest,
		Message:  "Invalid request body",
		Detail:   "The request body is not valid JSON for this endpoint.",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Status:   http.StatusInternalServerError,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Status:   http.StatusInternalServerError,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or has the wrong format.",
	},
	"E122": {
		Category: CategoryConfig,
		Status:   http.StatusInternalServerError,
		Message:  "Invalid port",
		Detail:   "Port must be between 1 and 65535.",
	},
	"E141": {
		Category: CategoryConfig,
		Status:   http.StatusInternalServerError,
		Message:  "Configuration file not found",
		Detail:   "No saulapp.json, saulapp.yaml or saulapp.yml was found.",
	},

	// ============================================
	// CLI Errors (E160-E179)
	// ============================================

	"E160": {
		Category: CategoryCLI,
		Status:   http.StatusInternalServerError,
		Message:  "Writ import failed",
		Detail:   "A markdown file could not be imported as a writ.",
	},
	"E161": {
		Category: CategoryCLI,
		Status:   http.StatusInternalServerError,
		Message:  "Render failed",
		Detail:   "The static site could not be rendered.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
