package dynamo

// Config configures the DynamoDB document store
type Config struct {
	// Table holds every document and collection marker.
	// Default: "bigfish_documents"
	Table string

	// Region is the AWS region. Default: "us-east-1"
	Region string

	// Endpoint overrides the service endpoint, e.g. http://localhost:8000
	// for DynamoDB Local. Static dummy credentials are used when set.
	Endpoint string

	// Profile selects a shared config profile
	Profile string

	// CreateTable creates the table on connect when it does not exist
	CreateTable bool
}

// DefaultConfig returns defaults suitable for DynamoDB Local
func DefaultConfig() Config {
	return Config{
		Table:  "bigfish_documents",
		Region: "us-east-1",
	}
}

func (c *Config) validate() {
	if c.Table == "" {
		c.Table = "bigfish_documents"
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
}
