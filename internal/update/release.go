package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/forgehq/forge/internal/ferrors"
)

const (
	checkTimeout    = 10 * time.Second
	downloadTimeout = 5 * time.Minute
	maxAPIResponse  = 1 << 20
)

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	// State mirrors GitHub's asset upload state; only "uploaded" assets
	// are eligible for selection.
	State string `json:"state"`
}

// Release is the subset of GitHub release JSON the update machine reads.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Outcome is the result of a check_for_update call.
type Outcome int

const (
	UpToDate Outcome = iota
	Available
)

// CheckResult bundles the outcome with the available-update details.
type CheckResult struct {
	Outcome Outcome
	Current string
	Latest  string
	URL     string
	Size    int64
}

func newClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	return rc.StandardClient()
}

// CheckForUpdate fetches releasesURL, compares the latest tag to current,
// and selects the platform-matching uploaded asset.
func CheckForUpdate(ctx context.Context, releasesURL, currentVersion, appName string) (*CheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, nil)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindUpdateCheck, releasesURL, "building request", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("%s/%s", appName, currentVersion))
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := newClient().Do(req)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindUpdateCheck, releasesURL, "fetching release metadata", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, ferrors.New(ferrors.KindUpdateCheck, fmt.Sprintf("release endpoint returned %d: %s", resp.StatusCode, body))
	}

	var release Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAPIResponse)).Decode(&release); err != nil {
		return nil, ferrors.Wrap(ferrors.KindUpdateCheck, releasesURL, "parsing release JSON", err)
	}

	current, err := ParseVersion(currentVersion)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindUpdateCheck, "", "parsing current version", err)
	}
	latest, err := ParseVersion(release.TagName)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindUpdateCheck, "", "parsing release tag", err)
	}

	if !current.LessThan(latest) {
		return &CheckResult{Outcome: UpToDate, Current: current.String(), Latest: latest.String()}, nil
	}

	asset, err := selectAsset(release.Assets)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.KindUpdateAssetNotFound, "", "selecting platform asset", err)
	}

	return &CheckResult{
		Outcome: Available,
		Current: current.String(),
		Latest:  latest.String(),
		URL:     asset.URL,
		Size:    asset.Size,
	}, nil
}

// platformKey returns the naming fragment used to match a release asset to
// this OS/architecture, e.g. "linux_amd64".
func platformKey() string {
	return runtime.GOOS + "_" + runtime.GOARCH
}

func selectAsset(assets []Asset) (*Asset, error) {
	key := platformKey()
	for i := range assets {
		a := &assets[i]
		if a.State != "uploaded" {
			continue
		}
		if strings.Contains(a.Name, key) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no uploaded asset matches platform %q", key)
}
