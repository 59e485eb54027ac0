package common

import (
	"fmt"
	"strings"
)

const (
	// DefaultAPIBase is the GitHub REST endpoint used when no other is configured
	DefaultAPIBase = "https://api.github.com"
	// DefaultUserAgent is sent with every remote request
	DefaultUserAgent = "dDocs-Storage"
)

// --------------------------------------------------------------------------
// Remote client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds everything needed to talk to the remote content API.
type ClientConfig struct {
	// Token is the API credential. It is required for the GitHub remote.
	Token string
	// Owner and Repo name the repository holding the documents
	Owner string
	Repo  string
	// Branch is optional, the default branch of the repository is used when empty
	Branch string
	// APIBase is the base URL of the API (e.g. https://api.github.com)
	APIBase string
	// TimeoutSecond bounds every single remote call
	TimeoutSecond int
	// UserAgent is sent as User-Agent header
	UserAgent string
}

// WithDefaults returns a copy of the config with empty fields set to their defaults
func (c ClientConfig) WithDefaults() ClientConfig {
	if c.APIBase == "" {
		c.APIBase = DefaultAPIBase
	}
	c.APIBase = strings.TrimRight(c.APIBase, "/")
	if c.TimeoutSecond <= 0 {
		c.TimeoutSecond = 10
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// Repository returns the "owner/repo" form of the configured repository
func (c *ClientConfig) Repository() string {
	return c.Owner + "/" + c.Repo
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Remote")
	addField("API", c.APIBase)
	addField("Repository", c.Repository())
	branch := c.Branch
	if branch == "" {
		branch = "(default)"
	}
	addField("Branch", branch)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("Credentials")
	addField("Token", maskToken(c.Token))

	return sb.String()
}

// maskToken hides all but the last four characters of a token
func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + token[len(token)-4:]
}
