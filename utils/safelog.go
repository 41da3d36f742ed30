// utils/safelog.go
// ============================================================================
// SAFE LOGGING - Masque les données sensibles en production
// ============================================================================
// Every log line of the API goes through these helpers. In production emails,
// identifiers and amounts are masked before they reach the logrus output.
// ============================================================================

package utils

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

var (
	// Logger is the process-wide structured logger.
	Logger = logrus.New()

	// IsProduction enables masking of sensitive values.
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production"
)

// InitLogger configures the logger for the environment: JSON in production,
// coloured text otherwise. Unknown levels fall back to info.
func InitLogger(environment, level string) {
	IsProduction = environment == "production" || os.Getenv("GIN_MODE") == "release"

	if IsProduction {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
}

// ============================================================================
// PATTERNS DE MASQUAGE
// ============================================================================

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Montants avec devise, symbole devant ou code derrière
	amountWithCurrencyRegex = regexp.MustCompile(`[$€£]\s?\d+([.,]\d{1,2})?|\b\d+([.,]\d{1,2})?\s*(EUR|USD|GBP)\b`)

	cardRegex = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)

	uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// ============================================================================
// FONCTIONS DE MASQUAGE
// ============================================================================

// MaskString masks emails, card numbers, amounts and shortens UUIDs.
func MaskString(input string) string {
	if !IsProduction {
		return input
	}

	// Les UUID d'abord : leurs 16 derniers chiffres ressemblent à une carte
	result := shortenUUIDs(input)
	result = emailRegex.ReplaceAllString(result, "***@***.***")
	result = cardRegex.ReplaceAllString(result, "****-****-****-****")
	return amountWithCurrencyRegex.ReplaceAllString(result, "***")
}

func shortenUUIDs(s string) string {
	return uuidRegex.ReplaceAllStringFunc(s, func(uuid string) string {
		return uuid[:8] + "..."
	})
}

// MaskAmount masque un montant financier
func MaskAmount(amount string) string {
	if IsProduction {
		return "***"
	}
	return amount
}

// MaskID keeps the first 8 characters of an identifier.
func MaskID(id string) string {
	if !IsProduction {
		return id
	}
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "..."
}

func MaskEmail(email string) string {
	if !IsProduction {
		return email
	}
	return "***@***.***"
}

// ============================================================================
// FONCTIONS DE LOGGING SÉCURISÉES
// ============================================================================

func SafeDebug(format string, args ...interface{}) {
	Logger.Debug(MaskString(fmt.Sprintf(format, args...)))
}

func SafeInfo(format string, args ...interface{}) {
	Logger.Info(MaskString(fmt.Sprintf(format, args...)))
}

func SafeWarn(format string, args ...interface{}) {
	Logger.Warn(MaskString(fmt.Sprintf(format, args...)))
}

func SafeError(format string, args ...interface{}) {
	Logger.Error(MaskString(fmt.Sprintf(format, args...)))
}

// ============================================================================
// FONCTIONS DE LOGGING MÉTIER SPÉCIFIQUES
// ============================================================================

// LogExpenseAction logs a mutation of an expense without its amount.
func LogExpenseAction(action, expenseID, userID string) {
	Logger.WithFields(logrus.Fields{
		"component":  "expense",
		"expense_id": MaskID(expenseID),
		"user_id":    MaskID(userID),
	}).Info(action)
}

func LogAuthAction(action, email string, success bool) {
	entry := Logger.WithFields(logrus.Fields{
		"component": "auth",
		"email":     MaskEmail(email),
	})
	if success {
		entry.Info(action)
		return
	}
	entry.Warn(action + " failed")
}

// LogAPIRequest log une requête API (sans données sensibles dans le body)
func LogAPIRequest(method, path, userID string, statusCode int, duration string) {
	if IsProduction {
		path = shortenUUIDs(path)
	}
	entry := Logger.WithFields(logrus.Fields{
		"component": "api",
		"method":    method,
		"path":      path,
		"user_id":   MaskID(userID),
		"status":    statusCode,
		"duration":  duration,
	})
	switch {
	case statusCode >= 500:
		entry.Error("request")
	case statusCode >= 400:
		entry.Warn("request")
	default:
		entry.Info("request")
	}
}

func LogWebSocket(action, userID string) {
	Logger.WithFields(logrus.Fields{
		"component": "ws",
		"user_id":   MaskID(userID),
	}).Debug(action)
}

// LogJob logs the outcome of a scheduled job.
func LogJob(job string, affected int64, err error) {
	entry := Logger.WithFields(logrus.Fields{"component": "scheduler", "job": job, "affected": affected})
	if err != nil {
		entry.WithError(err).Error("job failed")
		return
	}
	entry.Info("job done")
}

// ============================================================================
// FONCTIONS UTILITAIRES
// ============================================================================

func GetEnvMode() string {
	if IsProduction {
		return "production"
	}
	return "development"
}

// LogStartup log les informations de démarrage de l'application
func LogStartup(appName, version, port string) {
	Logger.WithFields(logrus.Fields{
		"mode":      GetEnvMode(),
		"port":      port,
		"log_level": Logger.GetLevel().String(),
	}).Infof("🚀 %s v%s starting", appName, version)
	if IsProduction {
		Logger.Warn("Production mode: sensitive data will be masked in logs")
	}
}
