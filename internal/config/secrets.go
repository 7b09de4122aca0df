package config

const redacted = "***"

// Redacted returns a copy of cfg with credentials masked, safe to log.
func Redacted(cfg *Config) Config {
	out := *cfg
	redact(&out.Broker.AppKey)
	redact(&out.Broker.AppSecret)
	redact(&out.Broker.RefreshToken)
	redact(&out.Broker.AccessToken)
	redact(&out.Cache.Password)
	redact(&out.Store.DSN)
	redact(&out.Archive.AccessKey)
	redact(&out.Archive.SecretKey)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
