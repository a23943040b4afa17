package middleware

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
)

// ConfigureHoneybadger sets up the global Honeybadger client from
// HONEYBADGER_API_KEY and POSDIT_ENV. It returns false when no key is set.
func ConfigureHoneybadger() bool {
	apiKey := os.Getenv("HONEYBADGER_API_KEY")
	if apiKey == "" {
		return false
	}
	honeybadger.Configure(honeybadger.Configuration{
		APIKey: apiKey,
		Env:    os.Getenv("POSDIT_ENV"),
	})
	return true
}

// HoneybadgerMiddleware reports panics and 5xx responses to Honeybadger.
// On panic, it notifies Honeybadger and re-panics to allow gin.Recovery to handle the response.
// 4xx responses are client mistakes and only logged.
func HoneybadgerMiddleware(log *logrus.Entry, enabled bool) gin.HandlerFunc {
	if !enabled {
		log.Info("Honeybadger is not active. To enable error reporting, set the HONEYBADGER_API_KEY environment variable.")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	log.Info("Honeybadger error reporting is enabled.")

	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				honeybadger.Notify(fmt.Sprintf("Panic: %s %s", c.Request.Method, c.Request.URL.Path),
					c.Request, honeybadger.Context{"stack": string(debug.Stack())}, honeybadger.Tags{"panic", "http"})
				log.Error("Recovered from panic, notified Honeybadger: ", rec)
				panic(rec)
			}
		}()

		c.Next()

		status := c.Writer.Status()
		switch {
		case status >= 500:
			honeybadger.Notify(fmt.Sprintf("Error: HTTP %d: %s %s", status, c.Request.Method, c.Request.URL.Path),
				c.Request, honeybadger.Context{"route": c.FullPath(), "errors": c.Errors.String()}, honeybadger.Tags{"5XX", "http"})
			log.Warnf("Honeybadger reported HTTP %d for %s %s", status, c.Request.Method, c.Request.URL.Path)
		case status >= 400 && status != 404:
			log.Debugf("HTTP %d for %s %s", status, c.Request.Method, c.Request.URL.Path)
		}
	}
}
