// README: Best-effort city validation via the Google Geocoding API.
package geo

import (
	"context"
	"fmt"
	"log"
	"strings"

	"googlemaps.github.io/maps"
)

// Service answers "is this a real place" lookups. It is an optional
// collaborator: any transport error reads as "unknown", never as a failure.
type Service struct {
	client *maps.Client
}

// NewService creates a Service with the given API key.
func NewService(apiKey string) (*Service, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Service{client: client}, nil
}

// IsKnownPlace reports whether the Geocoding API resolves name to at least
// one result. False on any error.
func (s *Service) IsKnownPlace(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}

	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: name})
	if err != nil {
		log.Printf("geocode %q: %v", name, err)
		return false
	}
	return len(results) > 0
}
