// Package providers implements weather.Provider for third-party weather APIs.
package providers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/i474232898/irrigation-advisor/internal/resilience"
	"github.com/i474232898/irrigation-advisor/internal/weather"
)

func newClient(name string, client *http.Client) *resilience.Client {
	return resilience.New(name, client, resilience.DefaultBackoff)
}

// cityQuery renders "city,country" or just "city" when no country is set.
func cityQuery(loc weather.Location) string {
	if loc.Country == "" {
		return loc.City
	}
	return fmt.Sprintf("%s,%s", loc.City, loc.Country)
}

// unixOrNow converts a provider epoch, falling back to the current time when absent.
func unixOrNow(sec int64) time.Time {
	if sec <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}
