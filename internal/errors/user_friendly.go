package errors

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// UserError provides user-friendly error messages with suggestions
type UserError struct {
	Operation  string // The operation that failed (e.g., "inventory.load")
	File       string // File or location where the error occurred
	Err        error  // Original error
	Suggestion string // Helpful suggestion for the user
	Code       string // Error code for programmatic handling
}

// Error implements the error interface
func (e UserError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Error: %s", e.Err)

	if e.Operation != "" {
		fmt.Fprintf(&buf, "\nOperation: %s", e.Operation)
	}

	if e.File != "" {
		fmt.Fprintf(&buf, "\nFile: %s", e.File)
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&buf, "\n\nSuggestion: %s", e.Suggestion)
	}

	return buf.String()
}

// Unwrap returns the underlying error for error chain compatibility
func (e UserError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the error code for programmatic handling
func (e UserError) ErrorCode() string {
	return e.Code
}

// Common error codes
const (
	ErrCodeFileNotFound     = "FILE_NOT_FOUND"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeInvalidConfig    = "INVALID_CONFIG"
	ErrCodeInvalidSyntax    = "INVALID_SYNTAX"
	ErrCodeNetworkError     = "NETWORK_ERROR"
	ErrCodeOperationTimeout = "OPERATION_TIMEOUT"
	ErrCodeInventoryLoad    = "INVENTORY_LOAD"
	ErrCodeBrokenPathsLoad  = "BROKEN_PATHS_LOAD"
	ErrCodeAuthorAPI        = "AUTHOR_API"
)

// ErrorBuilder helps construct user-friendly errors with suggestions
type ErrorBuilder struct {
	operation  string
	file       string
	err        error
	suggestion string
	code       string
}

// NewErrorBuilder creates a new error builder
func NewErrorBuilder() *ErrorBuilder {
	return &ErrorBuilder{}
}

// WithOperation sets the operation context
func (b *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	b.operation = operation
	return b
}

// WithFile sets the file context
func (b *ErrorBuilder) WithFile(file string) *ErrorBuilder {
	b.file = file
	return b
}

// WithError sets the underlying error
func (b *ErrorBuilder) WithError(err error) *ErrorBuilder {
	b.err = err
	return b
}

// WithSuggestion sets a helpful suggestion
func (b *ErrorBuilder) WithSuggestion(suggestion string) *ErrorBuilder {
	b.suggestion = suggestion
	return b
}

// WithCode sets the error code
func (b *ErrorBuilder) WithCode(code string) *ErrorBuilder {
	b.code = code
	return b
}

// Build creates the UserError
func (b *ErrorBuilder) Build() UserError {
	return UserError{
		Operation:  b.operation,
		File:       b.file,
		Err:        b.err,
		Suggestion: b.suggestion,
		Code:       b.code,
	}
}

// NewFileNotFoundError creates an error for missing files
func NewFileNotFoundError(file string, suggestion string) UserError {
	return NewErrorBuilder().
		WithFile(file).
		WithError(fmt.Errorf("file not found: %s", file)).
		WithCode(ErrCodeFileNotFound).
		WithSuggestion(suggestion).
		Build()
}

// NewInvalidSyntaxError creates an error for unparseable input documents
func NewInvalidSyntaxError(file string, line int, details string) UserError {
	suggestion := "Inventories are YAML or JSON documents with an 'items' list of {path, status} entries. Broken path files are one path per line or a YAML/JSON list."

	err := fmt.Errorf("syntax error in file %s", file)
	switch {
	case line > 0:
		err = fmt.Errorf("syntax error in file %s at line %d: %s", file, line, details)
	case details != "":
		err = fmt.Errorf("syntax error in file %s: %s", file, details)
	}

	return NewErrorBuilder().
		WithOperation("file parsing").
		WithFile(file).
		WithError(err).
		WithCode(ErrCodeInvalidSyntax).
		WithSuggestion(suggestion).
		Build()
}

var yamlLine = regexp.MustCompile(`line (\d+): (.*)`)

// NewParseError turns a decoder failure into an INVALID_SYNTAX error,
// pulling the line number out of YAML parser messages when there is one
func NewParseError(file string, err error) UserError {
	details := err.Error()
	line := 0
	if m := yamlLine.FindStringSubmatch(details); m != nil {
		line, _ = strconv.Atoi(m[1])
		details = m[2]
	}
	return NewInvalidSyntaxError(file, line, details)
}

// NewConfigError creates an error for configuration issues
func NewConfigError(configPath string, details string) UserError {
	suggestion := "Check cfpaths.yaml for syntax errors and make sure the values are in range. Every key can also be set through a CFPATHS_ environment variable, e.g. CFPATHS_AUTHOR_URL."

	return NewErrorBuilder().
		WithOperation("configuration loading").
		WithFile(configPath).
		WithError(fmt.Errorf("configuration error: %s", details)).
		WithCode(ErrCodeInvalidConfig).
		WithSuggestion(suggestion).
		Build()
}

// NewNetworkError creates an error for network-related issues
func NewNetworkError(operation string, endpoint string, err error) UserError {
	suggestion := "Check your network connection and verify that the author URL is correct."

	return NewErrorBuilder().
		WithOperation(operation).
		WithError(fmt.Errorf("network error accessing %s: %w", endpoint, err)).
		WithCode(ErrCodeNetworkError).
		WithSuggestion(suggestion).
		Build()
}

// NewPermissionError creates an error for permission issues
func NewPermissionError(file string, operation string) UserError {
	suggestion := "Check that you have read permissions for this file and its parent directory."

	return NewErrorBuilder().
		WithOperation(operation).
		WithFile(file).
		WithError(fmt.Errorf("permission denied accessing file: %s", file)).
		WithCode(ErrCodePermissionDenied).
		WithSuggestion(suggestion).
		Build()
}

// NewInventoryError creates an error for a content inventory that could not
// be loaded. The run cannot continue without it.
func NewInventoryError(location string, err error) UserError {
	if userErr, ok := withContext(err, "inventory.load", location); ok {
		return userErr
	}
	suggestion := "Point --inventory at a YAML/JSON inventory or a SQLite database (.db, .sqlite) with a 'content' table of path and status columns."

	return NewErrorBuilder().
		WithOperation("inventory.load").
		WithFile(location).
		WithError(err).
		WithCode(ErrCodeInventoryLoad).
		WithSuggestion(suggestion).
		Build()
}

// NewBrokenPathsError creates an error for a broken path list that could not
// be read
func NewBrokenPathsError(location string, err error) UserError {
	if userErr, ok := withContext(err, "brokenpaths.load", location); ok {
		return userErr
	}
	suggestion := "Provide one /content/dam/ path per line, or a YAML/JSON list of paths."

	return NewErrorBuilder().
		WithOperation("brokenpaths.load").
		WithFile(location).
		WithError(err).
		WithCode(ErrCodeBrokenPathsLoad).
		WithSuggestion(suggestion).
		Build()
}

// NewAuthorAPIError creates an error for a misconfigured or unreachable
// author environment. Transport failures become NETWORK_ERROR, or
// OPERATION_TIMEOUT when the request timed out.
func NewAuthorAPIError(baseURL string, err error) UserError {
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		netErr := NewNetworkError("author.connect", baseURL, err)
		netErr.File = baseURL
		if urlErr.Timeout() {
			netErr.Code = ErrCodeOperationTimeout
			netErr.Suggestion = "The author environment did not answer within author.timeout. Raise the timeout or check that the instance is healthy."
		}
		return netErr
	}

	suggestion := "Verify CFPATHS_AUTHOR_URL and CFPATHS_AUTHOR_TOKEN. Test the connection with: curl -H 'Authorization: Bearer $CFPATHS_AUTHOR_TOKEN' '$CFPATHS_AUTHOR_URL/api/content?path=/content/dam'"

	return NewErrorBuilder().
		WithOperation("author.connect").
		WithFile(baseURL).
		WithError(err).
		WithCode(ErrCodeAuthorAPI).
		WithSuggestion(suggestion).
		Build()
}

// withContext returns err as a UserError when it already is one, filling
// in the operation and file if the producer left them empty
func withContext(err error, operation, file string) (UserError, bool) {
	var userErr UserError
	if !stderrors.As(err, &userErr) {
		return UserError{}, false
	}
	if userErr.Operation == "" {
		userErr.Operation = operation
	}
	if userErr.File == "" {
		userErr.File = file
	}
	return userErr, true
}

var (
	errorStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	contextStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
)

// ErrorHandler provides consistent error formatting
type ErrorHandler struct {
	verbose bool
	quiet   bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose, quiet bool) *ErrorHandler {
	return &ErrorHandler{
		verbose: verbose,
		quiet:   quiet,
	}
}

// Handle processes an error and returns a formatted message
func (h *ErrorHandler) Handle(err error) string {
	if err == nil {
		return ""
	}

	var userErr UserError
	if stderrors.As(err, &userErr) {
		return h.formatUserError(userErr)
	}

	return h.formatRegularError(err)
}

func (h *ErrorHandler) formatUserError(err UserError) string {
	if h.quiet {
		return err.Err.Error()
	}

	var buf strings.Builder

	fmt.Fprintf(&buf, "%s %s\n", errorStyle.Render("Error:"), err.Err.Error())

	if err.Operation != "" {
		fmt.Fprintf(&buf, "%s %s\n", contextStyle.Render("Operation:"), err.Operation)
	}
	if err.File != "" {
		fmt.Fprintf(&buf, "%s %s\n", contextStyle.Render("File:"), err.File)
	}

	if err.Suggestion != "" {
		fmt.Fprintf(&buf, "\n%s %s\n", suggestionStyle.Render("Suggestion:"), err.Suggestion)
	}

	if h.verbose && err.Code != "" {
		fmt.Fprintf(&buf, "\nError Code: %s\n", err.Code)
	}

	return buf.String()
}

func (h *ErrorHandler) formatRegularError(err error) string {
	if h.quiet {
		return err.Error()
	}

	errMsg := err.Error()

	var suggestion string
	switch {
	case strings.Contains(errMsg, "no such file or directory"):
		suggestion = "Check that the file path is correct and the file exists."
	case strings.Contains(errMsg, "permission denied"):
		suggestion = "Check that you have the necessary permissions to access this file."
	case strings.Contains(errMsg, "connection refused"):
		suggestion = "Check that the author environment is running and reachable."
	case strings.Contains(errMsg, "invalid character"):
		suggestion = "Check for syntax errors in your YAML or JSON."
	case strings.Contains(errMsg, "timeout"):
		suggestion = "The operation took too long. Try raising analysis.rule_timeout or checking your network connection."
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "Error: %s", errMsg)

	if suggestion != "" {
		fmt.Fprintf(&buf, "\n\nSuggestion: %s", suggestion)
	}

	return buf.String()
}

// WrapError wraps a regular error into a UserError with context
func WrapError(err error, operation, file string) UserError {
	return NewErrorBuilder().
		WithOperation(operation).
		WithFile(file).
		WithError(err).
		Build()
}

// ExitCode returns an appropriate exit code for an error
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var userErr UserError
	if stderrors.As(err, &userErr) {
		switch userErr.Code {
		case ErrCodeFileNotFound:
			return 2
		case ErrCodePermissionDenied:
			return 3
		case ErrCodeInvalidConfig, ErrCodeInvalidSyntax:
			return 4
		case ErrCodeNetworkError, ErrCodeAuthorAPI:
			return 5
		case ErrCodeOperationTimeout:
			return 6
		case ErrCodeInventoryLoad, ErrCodeBrokenPathsLoad:
			return 7
		default:
			return 1
		}
	}

	return 1
}
