package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./shelf.db"

	// DefaultHighlightColor matches the reader's initial highlighter colour.
	DefaultHighlightColor = "#ffeb3b"

	// DefaultEmailJSEndpoint is the EmailJS REST endpoint used for book requests.
	DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"
)
