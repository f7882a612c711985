package config

const (
	DefaultServiceURL = "http://localhost:8000"
	DefaultTimeoutMS  = 120000

	DefaultServerAddr       = ":8000"
	DefaultModel            = "gpt-4o-mini"
	DefaultMaxContentTokens = 6000
	DefaultRedditTimeoutMS  = 30000
)
