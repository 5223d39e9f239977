package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	DatabasePath string
	ListenAddr   string
	AppURL       string
	SweepTime    string // "HH:MM" UTC, daily catch-up sweep
	LogLevel     string

	SMTPHost     string // host:port
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	CalDAVURL        string
	CalDAVUser       string
	CalDAVPassword   string
	CalDAVCalendarID string
}

func Load() (*Config, error) {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/fintrack.db"
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}
	appURL = strings.TrimSuffix(appURL, "/")

	sweepTime := os.Getenv("SWEEP_TIME")
	if sweepTime == "" {
		sweepTime = "00:08"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	if smtpPort == "" {
		smtpPort = "587"
	}
	smtpUser := os.Getenv("SMTP_USER")
	smtpFrom := os.Getenv("SMTP_FROM")
	if smtpFrom == "" {
		smtpFrom = smtpUser
	}
	if smtpHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is required")
	}

	return &Config{
		DatabasePath: dbPath,
		ListenAddr:   listenAddr,
		AppURL:       appURL,
		SweepTime:    sweepTime,
		LogLevel:     logLevel,

		SMTPHost:     smtpHost + ":" + smtpPort,
		SMTPUser:     smtpUser,
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     smtpFrom,

		CalDAVURL:        os.Getenv("CALDAV_URL"),
		CalDAVUser:       os.Getenv("CALDAV_USER"),
		CalDAVPassword:   os.Getenv("CALDAV_PASSWORD"),
		CalDAVCalendarID: os.Getenv("CALDAV_CALENDAR_ID"),
	}, nil
}
