package api

import "net/http"

// EndpointDescriptor is a static description of one logical API
// operation. Descriptors are immutable and defined at compile time.
type EndpointDescriptor struct {
	Name         string
	Path         string
	Method       string
	RequiresAuth bool
}

// The logical endpoints of the streaming API
var (
	// EndpointContent fetches the available content catalog
	EndpointContent = EndpointDescriptor{
		Name:         "content",
		Path:         "/api/v1/content",
		Method:       http.MethodGet,
		RequiresAuth: true,
	}

	// EndpointAnalytics submits a batch of analytics events
	EndpointAnalytics = EndpointDescriptor{
		Name:         "analytics",
		Path:         "/api/v1/analytics",
		Method:       http.MethodPost,
		RequiresAuth: true,
	}

	// EndpointSync uploads a user-data snapshot
	EndpointSync = EndpointDescriptor{
		Name:         "sync",
		Path:         "/api/v1/sync",
		Method:       http.MethodPost,
		RequiresAuth: true,
	}

	// EndpointUpdates checks for application updates
	EndpointUpdates = EndpointDescriptor{
		Name:         "updates",
		Path:         "/api/v1/updates",
		Method:       http.MethodGet,
		RequiresAuth: true,
	}
)

// Endpoints returns all defined endpoint descriptors
func Endpoints() []EndpointDescriptor {
	return []EndpointDescriptor{EndpointContent, EndpointAnalytics, EndpointSync, EndpointUpdates}
}
