package config

import (
	"fmt"
	"strings"
)

const (
	portEnvVar   = "PORT"
	appNameVar   = "APP_NAME"
	folderEnvVar = "FOLDER"
)

type EnvVars struct {
	src *source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.src.lookup(portEnvVar, "server.port", "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.src.lookup(appNameVar, "server.app_name", "Trivia Director")
}

func (e EnvVars) GetDataFolder() string {
	return e.src.lookup(folderEnvVar, "server.data_folder", "./data")
}

func (e EnvVars) GetLogLevel() string {
	return e.src.lookup("LOG_LEVEL", "log.level", "info")
}

// GetLogFile returns the rotating log file path; empty logs to stdout only.
func (e EnvVars) GetLogFile() string {
	return e.src.lookup("LOG_FILE", "log.file", "")
}

func (e EnvVars) GetSmtpPassword() string {
	return e.src.lookup("SMTP_PASSWORD", "smtp.password", "")
}

func (e EnvVars) GetSmtpAccount() string {
	return e.src.lookup("SMTP_ACCOUNT", "smtp.account", "")
}

func (e EnvVars) GetSmtpHost() string {
	return e.src.lookup("SMTP_HOST", "smtp.host", "smtp.gmail.com")
}

func (e EnvVars) GetSmtpPort() string {
	return e.src.lookup("SMTP_PORT", "smtp.port", "587")
}

// GetSmtpRecipient is the admin inbox notified about new token requests.
func (e EnvVars) GetSmtpRecipient() string {
	return e.src.lookup("EMAIL_RECIPIENT", "smtp.recipient", "")
}

func (e EnvVars) GetSystemAdminUser() string {
	return e.src.lookup("ADMIN_USERNAME", "server.admin_username", "admin")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.src.lookup("ENV", "server.env", "DEV"))
}
