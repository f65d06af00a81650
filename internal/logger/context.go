package logger

// Component-specific logger functions

// Store returns a logger for database operations
func Store() Logger {
	return WithField("component", "store")
}

// HTTP returns a logger for the HTTP API
func HTTP() Logger {
	return WithField("component", "http")
}

// Auth returns a logger for authentication and sign-up flows
func Auth() Logger {
	return WithField("component", "auth")
}

// Projects returns a logger for project operations
func Projects() Logger {
	return WithField("component", "projects")
}

// Tasks returns a logger for task operations
func Tasks() Logger {
	return WithField("component", "tasks")
}

// CLI returns a logger for CLI operations
func CLI() Logger {
	return WithField("component", "cli")
}
