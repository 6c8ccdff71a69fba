package questdb

import "time"

type Config struct {
	Address string
	Table   string

	RetryTimeout time.Duration
}

func NewDefaultConfig() *Config {
	return &Config{
		Address: "localhost:9000",
		Table:   "ring_bench",

		RetryTimeout: time.Second,
	}
}
