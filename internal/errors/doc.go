// Package errors provides coded, structured errors for the server and CLI.
//
// Each registered code maps to a category, an HTTP status, a short message
// and a longer explanation. Errors can carry a file location with context
// lines (used for configuration files), a fix suggestion and an example,
// and wrap an underlying error for errors.Is/As.
//
// # Usage
//
//	err := errors.New("E120").
//	    WithLocation("saulapp.json", 4, 12).
//	    WithSuggestion("Check that saulapp.json is valid JSON").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())     // terminal output with colors
//	fmt.Println(err.FormatJSON()) // API responses
//	status := errors.HTTPStatus(err)
package errors
