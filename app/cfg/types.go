package cfg

type Cfg struct {
	// Upstream feed configuration
	FeedURL      string
	FeedFormat   string
	FetchTimeout int

	// Application configuration
	DBPath           string
	DestinationsFile string
	Port             string
	PollInterval     int
	PacingInterval   int
	SummaryThreshold int
	CommandPrefix    string
	APIAccessKey     string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
