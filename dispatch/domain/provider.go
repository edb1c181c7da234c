package domain

import (
	"errors"
	"fmt"
	"time"
)

// ProviderConfig é a política estática de um provedor, carregada no start e imutável depois.
type ProviderConfig struct {
	Name string
	// MinInterval é o intervalo mínimo entre o início de duas chamadas. 0 desliga.
	MinInterval time.Duration
	// MaxConcurrent limita chamadas simultâneas. <= 0 significa sem limite.
	MaxConcurrent     int
	MaxRetries        int
	BaseBackoff       time.Duration
	BackoffMultiplier float64
	// MaxBackoff limita o crescimento do backoff. 0 = sem teto.
	MaxBackoff time.Duration
}

func (c ProviderConfig) Validate() error {
	if c.Name == "" {
		return errors.New("provider name is required")
	}
	if c.MinInterval < 0 {
		return fmt.Errorf("%s: min interval must be >= 0", c.Name)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%s: max retries must be >= 0", c.Name)
	}
	if c.BaseBackoff < 0 {
		return fmt.Errorf("%s: base backoff must be >= 0", c.Name)
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("%s: backoff multiplier must be >= 1", c.Name)
	}
	if c.MaxBackoff < 0 {
		return fmt.Errorf("%s: max backoff must be >= 0", c.Name)
	}
	return nil
}

// NextBackoff calcula o próximo atraso a partir do atual.
func (c ProviderConfig) NextBackoff(cur time.Duration) time.Duration {
	next := time.Duration(float64(cur) * c.BackoffMultiplier)
	if c.MaxBackoff > 0 && next > c.MaxBackoff {
		next = c.MaxBackoff
	}
	return next
}
