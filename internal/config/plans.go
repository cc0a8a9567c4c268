package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Plan describes what a paid order grants. One-time packs carry only Credits;
// subscription plans also carry monthly credits and an annual price threshold.
type Plan struct {
	ID              string  `mapstructure:"id"`
	Credits         int64   `mapstructure:"credits"`
	Tier            string  `mapstructure:"tier"`
	AnnualThreshold float64 `mapstructure:"annualThreshold"`
}

type PlanCatalogConfig struct {
	Plans []Plan `mapstructure:"plans"`
}

func DefaultPlanCatalog() PlanCatalogConfig {
	return PlanCatalogConfig{
		Plans: []Plan{
			{ID: "gift", Credits: 30},
			{ID: "starter", Credits: 100},
			{ID: "popular", Credits: 650},
			{ID: "expert", Credits: 4000},
			{ID: "lite", Credits: 225, Tier: "lite", AnnualThreshold: 200},
			{ID: "pro", Credits: 750, Tier: "pro", AnnualThreshold: 500},
			{ID: "agency", Credits: 2250, Tier: "agency", AnnualThreshold: 2000},
		},
	}
}

// PlanCatalog exposes the current plan table with hot reload support.
type PlanCatalog struct {
	current atomic.Value // holds PlanCatalogConfig
}

func LoadPlanCatalog() (*PlanCatalog, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/pixelmint")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PIXELMINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultPlanCatalog()
		v.SetDefault("catalog.plans", defaults.Plans)
	}

	var cfg PlanCatalogConfig
	if err := v.UnmarshalKey("catalog", &cfg); err != nil {
		return nil, err
	}
	if err := validatePlanCatalog(cfg); err != nil {
		return nil, err
	}

	catalog := &PlanCatalog{}
	catalog.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanCatalogConfig
		if err := v.UnmarshalKey("catalog", &updated); err != nil {
			log.Printf("[plan-catalog] reload failed: %v", err)
			return
		}
		if err := validatePlanCatalog(updated); err != nil {
			log.Printf("[plan-catalog] invalid config ignored: %v", err)
			return
		}
		catalog.current.Store(updated)
		log.Printf("[plan-catalog] reloaded from %s", e.Name)
	})

	return catalog, nil
}

// NewPlanCatalog builds a catalog from a fixed config, bypassing viper. Test helper.
func NewPlanCatalog(cfg PlanCatalogConfig) *PlanCatalog {
	catalog := &PlanCatalog{}
	catalog.current.Store(cfg)
	return catalog
}

func (c *PlanCatalog) Get() PlanCatalogConfig {
	return c.current.Load().(PlanCatalogConfig)
}

// Find returns the plan with the given id, or false when unknown.
func (c *PlanCatalog) Find(id string) (Plan, bool) {
	for _, plan := range c.Get().Plans {
		if plan.ID == id {
			return plan, true
		}
	}
	return Plan{}, false
}

func validatePlanCatalog(cfg PlanCatalogConfig) error {
	if len(cfg.Plans) == 0 {
		return errors.New("catalog.plans cannot be empty")
	}
	for _, plan := range cfg.Plans {
		if strings.TrimSpace(plan.ID) == "" {
			return errors.New("catalog.plans entries require an id")
		}
		if plan.Credits < 0 {
			return errors.New("catalog.plans credits cannot be negative")
		}
	}
	return nil
}
