package llm

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NewCompletionClient creates the provider client, falling back to the mock
// when no API key is configured.
func NewCompletionClient(baseURL, apiKey string, timeout time.Duration, maxReads int, capHits prometheus.Counter) CompletionClient {
	if apiKey == "" {
		log.Println("WARN: no upstream API key configured, using mock completion client")
		return NewMockClient()
	}
	return NewClient(baseURL, apiKey, timeout, maxReads, capHits)
}
