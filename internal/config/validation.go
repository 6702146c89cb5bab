package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validate(c *Config) error {
	if err := structValidator.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if err := c.Exchange.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if c.Journal.Enabled && strings.TrimSpace(c.Journal.Path) == "" {
		return fmt.Errorf("journal.path is required when journal is enabled")
	}
	return nil
}

func (e *ExchangeConfig) validate() error {
	switch e.Name {
	case "binance", "paper":
	default:
		return fmt.Errorf("exchange.name must be binance or paper (got %q)", e.Name)
	}
	if e.Binance.Proxy.Enabled && strings.TrimSpace(e.Binance.Proxy.RESTURL) == "" {
		return fmt.Errorf("exchange.binance.proxy.rest_url is required when proxy is enabled")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	if !n.Telegram.Enabled {
		return nil
	}
	if strings.TrimSpace(n.Telegram.BotToken) == "" || strings.TrimSpace(n.Telegram.ChatID) == "" {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}

// formatValidationError reports the first failing field by its config path.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	path := configPath(fe.Namespace())
	if fe.Param() != "" {
		return fmt.Errorf("%s failed %s=%s (got %v)", path, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("%s failed %s (got %v)", path, fe.Tag(), fe.Value())
}

// configPath turns "Config.trading.risk_percentage" into "trading.risk_percentage".
func configPath(ns string) string {
	return strings.TrimPrefix(ns, "Config.")
}
