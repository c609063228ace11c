package retrieval

import (
	"errors"
	"time"
)

// Config holds retrieval thresholds. Zero values take the defaults.
type Config struct {
	DefaultK  int `yaml:"default_k"`
	ExtendedK int `yaml:"extended_k"`
	// LongQuestionTokens switches to ExtendedK when exceeded.
	LongQuestionTokens  int     `yaml:"long_question_tokens"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	// LowConfidenceKeep is how many chunks survive a low-confidence search.
	LowConfidenceKeep int           `yaml:"low_confidence_keep"`
	TokenBudget       int           `yaml:"token_budget"`
	Timeout           time.Duration `yaml:"timeout"`

	BreakerFailures    uint32        `yaml:"breaker_failures"`
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout"`
}

func (c Config) WithDefaults() Config {
	if c.DefaultK <= 0 {
		c.DefaultK = 4
	}
	if c.ExtendedK <= 0 {
		c.ExtendedK = 6
	}
	if c.LongQuestionTokens <= 0 {
		c.LongQuestionTokens = 80
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.6
	}
	if c.LowConfidenceKeep <= 0 {
		c.LowConfidenceKeep = 2
	}
	if c.TokenBudget <= 0 {
		c.TokenBudget = 1500
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerOpenTimeout <= 0 {
		c.BreakerOpenTimeout = 30 * time.Second
	}
	return c
}

func (c Config) Validate() error {
	if c.ExtendedK < c.DefaultK {
		return errors.New("retrieval: extended_k must be >= default_k")
	}
	if c.ConfidenceThreshold > 1 {
		return errors.New("retrieval: confidence_threshold must be within [0,1]")
	}
	if c.LowConfidenceKeep > c.DefaultK {
		return errors.New("retrieval: low_confidence_keep must be <= default_k")
	}
	return nil
}
