package analyzer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/kvesta/depcheck/pkg/settings"
	"github.com/kvesta/depcheck/pkg/vulnlib"
)

// loadResource reads a rule file from disk or over http(s).
func loadResource(ctx context.Context, s *settings.Settings, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return os.ReadFile(location)
	}

	res, err := get(ctx, vulnlib.NewHTTPClient(s, true), location)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: %s", location, res.Status)
	}
	return io.ReadAll(res.Body)
}
