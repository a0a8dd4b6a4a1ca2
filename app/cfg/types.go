package cfg

// Cfg is the resolved application configuration: parsed flags,
// environment credentials and the default fallbacks applied.
type Cfg struct {
	Action                string
	DryRun                bool
	IgnoreRulesValidation bool
	MaxAge                int
	OnlyFeedID            *int64
	RulesFile             string
	UserAgent             string
	Debug                 bool
	Username              string
	Password              string
	Version               string
}
