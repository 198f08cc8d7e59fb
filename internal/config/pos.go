package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PosConfig holds back-office tunables that operators may change without a
// redeploy (loaded from pos.yml, hot-reloaded on change).
type PosConfig struct {
	InvoiceNumberTemplate string `mapstructure:"invoiceNumberTemplate"`
	MaxLineItems          int    `mapstructure:"maxLineItems"`
}

func DefaultPosConfig() PosConfig {
	return PosConfig{
		InvoiceNumberTemplate: "INV-{BRANCH}-{YYYY}{MM}{DD}-{SEQ6}",
		MaxLineItems:          200,
	}
}

type PosConfigHolder struct {
	current atomic.Value // holds PosConfig
}

func NewPosConfigHolder() (*PosConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pos")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/tillway/config")
	v.AddConfigPath("/etc/tillway")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TILLWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPosConfig()
	v.SetDefault("pos.invoiceNumberTemplate", defaults.InvoiceNumberTemplate)
	v.SetDefault("pos.maxLineItems", defaults.MaxLineItems)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PosConfig
	if err := v.UnmarshalKey("pos", &cfg); err != nil {
		return nil, err
	}
	if err := validatePosConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PosConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PosConfig
		if err := v.UnmarshalKey("pos", &updated); err != nil {
			log.Printf("[pos-config] reload failed: %v", err)
			return
		}
		if err := validatePosConfig(updated); err != nil {
			log.Printf("[pos-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pos-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PosConfigHolder) Current() PosConfig {
	if h == nil {
		return DefaultPosConfig()
	}
	cfg, ok := h.current.Load().(PosConfig)
	if !ok {
		return DefaultPosConfig()
	}
	return cfg
}

func validatePosConfig(cfg PosConfig) error {
	if strings.TrimSpace(cfg.InvoiceNumberTemplate) == "" {
		return errors.New("pos config: invoice number template is empty")
	}
	if !strings.Contains(cfg.InvoiceNumberTemplate, "{SEQ") {
		return errors.New("pos config: invoice number template must contain a {SEQ} token")
	}
	if cfg.MaxLineItems <= 0 {
		return errors.New("pos config: maxLineItems must be positive")
	}
	return nil
}
