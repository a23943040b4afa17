package notifier

import "fmt"

// NewSender selects the sender implementation for the configured mode.
func NewSender(mode string, cfg SMTPConfig) (Sender, error) {
	switch mode {
	case "smtp":
		return NewSMTPSender(cfg)
	case "", "log":
		return LogSender{}, nil
	default:
		return nil, fmt.Errorf("unknown mail mode: %s (use 'smtp' or 'log')", mode)
	}
}
